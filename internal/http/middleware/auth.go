package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/portalaovivo/eventos/internal/auth"
)

type contextKey string

const (
	ContextKeyUsuarioID contextKey = "usuario_id"
	ContextKeyNome      contextKey = "nome"
	ContextKeyEmail     contextKey = "email"
	ContextKeyCategoria contextKey = "categoria"
)

// CookieName é o cookie HTTP-only que transporta o token de sessão.
const CookieName = "authToken"

// TokenFromRequest extrai o token do cookie de sessão, aceitando o cabeçalho
// Authorization como alternativa para clientes fora do navegador.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// Auth valida o token de sessão e injeta as claims no contexto. Qualquer
// falha (ausente, inválido ou expirado) vira um mesmo 401 genérico.
func Auth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "sessão inválida")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "sessão inválida")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUsuarioID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyNome, claims.Nome)
			ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
			ctx = context.WithValue(ctx, ContextKeyCategoria, claims.Categoria)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsuarioID recupera o id do usuário autenticado do contexto.
func GetUsuarioID(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyUsuarioID).(string)
	return val
}

// GetNome recupera o nome do contexto.
func GetNome(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyNome).(string)
	return val
}

// GetEmail recupera o e-mail do contexto.
func GetEmail(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyEmail).(string)
	return val
}

// GetCategoria recupera a categoria do contexto.
func GetCategoria(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyCategoria).(string)
	return val
}

// RequireAdmin garante categoria admin na sessão autenticada.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetCategoria(r.Context()) != auth.CategoriaAdmin {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a administradores")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
