package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Categorias conhecidas de usuário. O conjunto é fechado: qualquer outro
// valor é rejeitado na emissão do token.
const (
	CategoriaAdmin = "admin"
	CategoriaUser  = "user"
)

var (
	// ErrTokenInvalido indica token malformado ou com assinatura incorreta.
	ErrTokenInvalido = errors.New("token inválido")
	// ErrTokenExpirado indica token bem formado porém vencido.
	ErrTokenExpirado = errors.New("token expirado")
	// ErrClaimsInvalidas indica claims incompletas ou categoria desconhecida.
	ErrClaimsInvalidas = errors.New("claims inválidas")
)

// Claims representa as informações presentes em um token de sessão.
type Claims struct {
	Nome      string `json:"nome"`
	Email     string `json:"email"`
	Categoria string `json:"categoria"`
	jwt.RegisteredClaims
}

// TokenManager encapsula emissão e validação de tokens de sessão.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager cria o gerenciador com segredo e TTL configurados.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock substitui o relógio, permitindo simular expiração em testes.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// TTL devolve a validade configurada (usada para o Max-Age do cookie).
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue cria um JWT HS256 com identidade e categoria do usuário.
func (m *TokenManager) Issue(usuarioID, nome, email, categoria string) (string, error) {
	if strings.TrimSpace(usuarioID) == "" {
		return "", ErrClaimsInvalidas
	}
	if categoria != CategoriaAdmin && categoria != CategoriaUser {
		return "", ErrClaimsInvalidas
	}

	now := m.now().UTC()

	claims := Claims{
		Nome:      nome,
		Email:     email,
		Categoria: categoria,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usuarioID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify valida assinatura e expiração e devolve as claims decodificadas.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpirado
		}
		return nil, ErrTokenInvalido
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalido
	}

	return claims, nil
}
