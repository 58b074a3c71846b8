package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/portalaovivo/eventos/internal/auth"
	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/util"
)

var (
	// ErrUsuarioNaoEncontrado indica identificador sem conta correspondente.
	ErrUsuarioNaoEncontrado = errors.New("usuário não encontrado")
	// ErrContaDesativada indica conta existente porém inativa.
	ErrContaDesativada = errors.New("conta desativada")
	// ErrIdentificadorInvalido indica identificador que não é e-mail nem CPF.
	ErrIdentificadorInvalido = errors.New("identificador inválido")
)

type sessionRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByCPF(ctx context.Context, cpf string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	InsertLogin(ctx context.Context, arg repo.InsertLoginParams) (repo.Login, error)
	CloseUltimoLogin(ctx context.Context, usuarioID uuid.UUID, at time.Time) (repo.Login, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	ListOnline(ctx context.Context, cutoff time.Time) ([]repo.Usuario, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService concentra o ciclo de vida de sessão: entrada, heartbeat e saída.
type SessionService struct {
	repo        sessionRepository
	redis       redisCommander
	tokens      *auth.TokenManager
	presenceTTL time.Duration
	now         func() time.Time
}

// NewSessionService cria novo serviço.
func NewSessionService(r sessionRepository, redisClient redisCommander, tokens *auth.TokenManager, presenceTTL time.Duration) *SessionService {
	return &SessionService{repo: r, redis: redisClient, tokens: tokens, presenceTTL: presenceTTL, now: util.Now}
}

// WithClock substitui o relógio do serviço em testes.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Perfil é a projeção da conta devolvida ao cliente. Nunca expõe CPF completo.
type Perfil struct {
	ID         string     `json:"id"`
	Nome       string     `json:"nome"`
	Email      string     `json:"email"`
	Categoria  string     `json:"categoria"`
	LastActive *time.Time `json:"last_active,omitempty"`
}

// LoginResult representa retorno da autenticação.
type LoginResult struct {
	Token   string
	Usuario Perfil
}

func presenceKey(id uuid.UUID) string {
	return "online:" + id.String()
}

func toPerfil(u repo.Usuario) Perfil {
	return Perfil{
		ID:         u.ID.String(),
		Nome:       u.Nome,
		Email:      u.Email,
		Categoria:  u.Categoria,
		LastActive: u.LastActive,
	}
}

// Login autentica pelo identificador (e-mail ou CPF), emite o token e grava o
// registro de entrada. O sistema é deliberadamente sem senha: o identificador
// é a credencial.
func (s *SessionService) Login(ctx context.Context, identifier, ip, navegador string) (*LoginResult, error) {
	if err := util.RequireString(identifier, "identificador"); err != nil {
		return nil, ErrIdentificadorInvalido
	}

	var (
		user repo.Usuario
		err  error
	)
	if util.IsCPFLike(identifier) {
		cpf, cpfErr := util.NormalizeCPF(identifier)
		if cpfErr != nil {
			return nil, ErrIdentificadorInvalido
		}
		user, err = s.repo.GetUsuarioByCPF(ctx, cpf)
	} else {
		if mailErr := util.ValidateEmail(identifier); mailErr != nil {
			return nil, ErrIdentificadorInvalido
		}
		user, err = s.repo.GetUsuarioByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrUsuarioNaoEncontrado
		}
		return nil, err
	}

	if !user.Ativo {
		log.Warn().Str("usuario_id", user.ID.String()).Msg("login: conta desativada")
		return nil, ErrContaDesativada
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Nome, user.Email, user.Categoria)
	if err != nil {
		return nil, err
	}

	// Auditoria é melhor esforço: a falha não bloqueia a emissão do token.
	if _, err := s.repo.InsertLogin(ctx, repo.InsertLoginParams{
		ID:        uuid.New(),
		UsuarioID: user.ID,
		LoginEm:   s.now(),
		IP:        ip,
		Navegador: navegador,
	}); err != nil {
		log.Error().Err(err).Str("usuario_id", user.ID.String()).Msg("login: falha ao gravar registro de entrada")
	}

	return &LoginResult{Token: token, Usuario: toPerfil(user)}, nil
}

// Heartbeat atualiza last_active e renova a chave de presença no Redis.
func (s *SessionService) Heartbeat(ctx context.Context, usuarioID uuid.UUID) error {
	now := s.now()
	if err := s.repo.UpdateLastActive(ctx, usuarioID, now); err != nil {
		return err
	}

	if err := s.redis.Set(ctx, presenceKey(usuarioID), now.Unix(), s.presenceTTL).Err(); err != nil {
		// Presença em Redis é um atalho para a visão de online; o banco
		// continua sendo a fonte da verdade.
		log.Error().Err(err).Str("usuario_id", usuarioID.String()).Msg("heartbeat: falha ao renovar presença")
	}
	return nil
}

// Logout fecha o registro de sessão aberto mais recente e remove a presença.
// Tolerante a ausência de sessão aberta: sair deve sempre funcionar.
func (s *SessionService) Logout(ctx context.Context, usuarioID uuid.UUID) error {
	if _, err := s.repo.CloseUltimoLogin(ctx, usuarioID, s.now()); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, presenceKey(usuarioID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Error().Err(err).Str("usuario_id", usuarioID.String()).Msg("logout: falha ao remover presença")
	}
	return nil
}

// Me devolve o perfil atual da conta autenticada, relendo o banco.
func (s *SessionService) Me(ctx context.Context, usuarioID uuid.UUID) (Perfil, error) {
	user, err := s.repo.GetUsuarioByID(ctx, usuarioID)
	if err != nil {
		return Perfil{}, err
	}
	return toPerfil(user), nil
}

// ListOnline devolve usuários com atividade dentro da janela de presença.
func (s *SessionService) ListOnline(ctx context.Context) ([]Perfil, error) {
	usuarios, err := s.repo.ListOnline(ctx, s.now().Add(-s.presenceTTL))
	if err != nil {
		return nil, err
	}
	perfis := make([]Perfil, 0, len(usuarios))
	for _, u := range usuarios {
		perfis = append(perfis, toPerfil(u))
	}
	return perfis, nil
}
