package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "segredo-de-teste-com-tamanho-suficiente"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := NewTokenManager(testSecret, time.Hour).WithClock(fixedClock(issuedAt))

	token, err := mgr.Issue("usuario-123", "Maria Silva", "maria@example.com", CategoriaAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.Subject != "usuario-123" {
		t.Errorf("subject = %q, esperado usuario-123", claims.Subject)
	}
	if claims.Nome != "Maria Silva" {
		t.Errorf("nome = %q", claims.Nome)
	}
	if claims.Email != "maria@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Categoria != CategoriaAdmin {
		t.Errorf("categoria = %q", claims.Categoria)
	}
	if !claims.IssuedAt.Time.Equal(issuedAt) {
		t.Errorf("iat = %v, esperado %v", claims.IssuedAt.Time, issuedAt)
	}
	if !claims.ExpiresAt.Time.Equal(issuedAt.Add(time.Hour)) {
		t.Errorf("exp = %v, esperado %v", claims.ExpiresAt.Time, issuedAt.Add(time.Hour))
	}
}

func TestIssueRejectsClaimsInvalidas(t *testing.T) {
	mgr := NewTokenManager(testSecret, time.Hour)

	cases := []struct {
		name      string
		usuarioID string
		categoria string
	}{
		{"sem usuario", "", CategoriaUser},
		{"categoria vazia", "usuario-1", ""},
		{"categoria desconhecida", "usuario-1", "superadmin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := mgr.Issue(tc.usuarioID, "Nome", "a@b.com", tc.categoria); !errors.Is(err, ErrClaimsInvalidas) {
				t.Fatalf("err = %v, esperado ErrClaimsInvalidas", err)
			}
		})
	}
}

func TestVerifyRejectsTokenAdulterado(t *testing.T) {
	mgr := NewTokenManager(testSecret, time.Hour)

	token, err := mgr.Issue("usuario-123", "Maria", "maria@example.com", CategoriaUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Um único caractere trocado em qualquer posição deve invalidar o token.
	// A troca altera os 4 bits mais altos do símbolo base64 para que o byte
	// decodificado mude mesmo quando bits finais do segmento são descartados.
	for _, pos := range []int{0, len(token) / 3, len(token) / 2, len(token) - 1} {
		if token[pos] == '.' {
			continue
		}
		replacement := byte('A')
		if token[pos] >= 'A' && token[pos] <= 'D' {
			replacement = 'z'
		}
		adulterado := token[:pos] + string(replacement) + token[pos+1:]
		if adulterado == token {
			t.Fatalf("flip na posição %d não alterou o token", pos)
		}

		if _, err := mgr.Verify(adulterado); !errors.Is(err, ErrTokenInvalido) {
			t.Errorf("posição %d: err = %v, esperado ErrTokenInvalido", pos, err)
		}
	}
}

func TestVerifyRejectsSegredoDiferente(t *testing.T) {
	emissor := NewTokenManager(testSecret, time.Hour)
	verificador := NewTokenManager(strings.Repeat("x", 32), time.Hour)

	token, err := emissor.Issue("usuario-123", "Maria", "maria@example.com", CategoriaUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verificador.Verify(token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("err = %v, esperado ErrTokenInvalido", err)
	}
}

func TestVerifyRejectsLixo(t *testing.T) {
	mgr := NewTokenManager(testSecret, time.Hour)

	for _, garbage := range []string{"", "abc", "a.b.c", "Bearer xyz"} {
		if _, err := mgr.Verify(garbage); !errors.Is(err, ErrTokenInvalido) {
			t.Errorf("Verify(%q): err = %v, esperado ErrTokenInvalido", garbage, err)
		}
	}
}

func TestVerifyExpirado(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour
	mgr := NewTokenManager(testSecret, ttl).WithClock(fixedClock(issuedAt))

	token, err := mgr.Issue("usuario-123", "Maria", "maria@example.com", CategoriaUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Ainda dentro da validade.
	mgr.WithClock(fixedClock(issuedAt.Add(ttl - time.Second)))
	if _, err := mgr.Verify(token); err != nil {
		t.Fatalf("verify antes da expiração: %v", err)
	}

	// Um segundo após o vencimento.
	mgr.WithClock(fixedClock(issuedAt.Add(ttl + time.Second)))
	if _, err := mgr.Verify(token); !errors.Is(err, ErrTokenExpirado) {
		t.Fatalf("err = %v, esperado ErrTokenExpirado", err)
	}
}
