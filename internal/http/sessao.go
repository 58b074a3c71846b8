package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/portalaovivo/eventos/internal/http/middleware"
	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/service"
)

// Login autentica pelo identificador (e-mail ou CPF) e grava o cookie de sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identificador string `json:"identificador"`
		Email         string `json:"email"`
		CPF           string `json:"cpf"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "JSON inválido", nil)
		return
	}

	identifier := strings.TrimSpace(payload.Identificador)
	if identifier == "" {
		identifier = strings.TrimSpace(payload.Email)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(payload.CPF)
	}
	if identifier == "" {
		WriteError(w, http.StatusBadRequest, CodeValidation, "identificador é obrigatório", nil)
		return
	}

	result, err := h.sessions.Login(r.Context(), identifier, clientIP(r), r.Header.Get("User-Agent"))
	if err != nil {
		h.handleLoginError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	WriteJSON(w, http.StatusOK, map[string]any{"user": result.Usuario})
}

// Logout fecha a sessão corrente. Sempre responde 200 e limpa o cookie,
// mesmo com token ausente ou expirado.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httpmiddleware.TokenFromRequest(r); token != "" {
		if claims, err := h.tokens.Verify(token); err == nil {
			if usuarioID, parseErr := uuid.Parse(claims.Subject); parseErr == nil {
				if err := h.sessions.Logout(r.Context(), usuarioID); err != nil {
					log.Error().Err(err).Msg("logout: falha ao encerrar sessão")
				}
			}
		}
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Heartbeat registra atividade do usuário autenticado.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	usuarioID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, CodeAuth, "sessão inválida", nil)
		return
	}

	if err := h.sessions.Heartbeat(r.Context(), usuarioID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, CodeAuth, "sessão inválida", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível registrar atividade", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me retorna o perfil atual do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	usuarioID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, CodeAuth, "sessão inválida", nil)
		return
	}

	perfil, err := h.sessions.Me(r.Context(), usuarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, CodeAuth, "sessão inválida", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível carregar perfil", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": perfil})
}

// handleLoginError colapsa conta inexistente, desativada e identificador
// malformado na mesma resposta, evitando enumeração de contas.
func (h *Handler) handleLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUsuarioNaoEncontrado),
		errors.Is(err, service.ErrContaDesativada),
		errors.Is(err, service.ErrIdentificadorInvalido):
		WriteError(w, http.StatusUnauthorized, CodeAuth, "credenciais inválidas", nil)
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternal, "erro ao autenticar", nil)
	}
}

func (h *Handler) subjectUUID(r *http.Request) (uuid.UUID, error) {
	subject := httpmiddleware.GetUsuarioID(r.Context())
	if strings.TrimSpace(subject) == "" {
		return uuid.Nil, errors.New("subject ausente")
	}
	return uuid.Parse(subject)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   !h.cfg.DevCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.cfg.DevCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientIP(r *http.Request) string {
	// chimiddleware.RealIP já normaliza X-Real-IP / X-Forwarded-For.
	return r.RemoteAddr
}
