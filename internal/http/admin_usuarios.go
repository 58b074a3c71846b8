package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/service"
)

type usuarioView struct {
	ID         string     `json:"id"`
	Nome       string     `json:"nome"`
	Email      string     `json:"email"`
	CPF        string     `json:"cpf,omitempty"`
	Categoria  string     `json:"categoria"`
	Ativo      bool       `json:"ativo"`
	LastActive *time.Time `json:"last_active,omitempty"`
	CriadoEm   time.Time  `json:"criado_em"`
}

type loginView struct {
	ID          string     `json:"id"`
	LoginEm     time.Time  `json:"login_em"`
	LogoutEm    *time.Time `json:"logout_em,omitempty"`
	TempoLogado *int64     `json:"tempo_logado,omitempty"`
	IP          string     `json:"ip,omitempty"`
	Navegador   string     `json:"navegador,omitempty"`
}

func toUsuarioView(u repo.Usuario) usuarioView {
	return usuarioView{
		ID:         u.ID.String(),
		Nome:       u.Nome,
		Email:      u.Email,
		CPF:        u.CPF,
		Categoria:  u.Categoria,
		Ativo:      u.Ativo,
		LastActive: u.LastActive,
		CriadoEm:   u.CriadoEm,
	}
}

func toLoginView(l repo.Login) loginView {
	return loginView{
		ID:          l.ID.String(),
		LoginEm:     l.LoginEm,
		LogoutEm:    l.LogoutEm,
		TempoLogado: l.TempoLogado,
		IP:          l.IP,
		Navegador:   l.Navegador,
	}
}

// ListOnline devolve usuários com heartbeat dentro da janela de presença.
func (h *Handler) ListOnline(w http.ResponseWriter, r *http.Request) {
	perfis, err := h.sessions.ListOnline(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível listar usuários online", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"online": perfis})
}

// ListUsuarios lista todas as contas.
func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	usuarios, err := h.usuarios.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível listar usuários", nil)
		return
	}

	views := make([]usuarioView, 0, len(usuarios))
	for _, u := range usuarios {
		views = append(views, toUsuarioView(u))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"usuarios": views})
}

// CreateUsuario cria uma conta via painel administrativo.
func (h *Handler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome      string `json:"nome"`
		Email     string `json:"email"`
		CPF       string `json:"cpf"`
		Categoria string `json:"categoria"`
		Ativo     *bool  `json:"ativo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "JSON inválido", nil)
		return
	}

	ativo := true
	if payload.Ativo != nil {
		ativo = *payload.Ativo
	}

	usuario, err := h.usuarios.Create(r.Context(), service.NovoUsuario{
		Nome:      payload.Nome,
		Email:     payload.Email,
		CPF:       payload.CPF,
		Categoria: payload.Categoria,
		Ativo:     ativo,
	})
	if err != nil {
		if errors.Is(err, service.ErrCategoriaInvalida) {
			WriteError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
			return
		}
		WriteError(w, http.StatusBadRequest, CodeValidation, "não foi possível criar usuário", map[string]any{"motivo": err.Error()})
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"usuario": toUsuarioView(usuario)})
}

// UpdateUsuario aplica edição administrativa sobre uma conta existente.
func (h *Handler) UpdateUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "id inválido", nil)
		return
	}

	atual, err := h.usuarios.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, CodeNotFound, "usuário não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível carregar usuário", nil)
		return
	}

	var payload struct {
		Nome      *string `json:"nome"`
		Email     *string `json:"email"`
		Categoria *string `json:"categoria"`
		Ativo     *bool   `json:"ativo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "JSON inválido", nil)
		return
	}

	nome := atual.Nome
	if payload.Nome != nil {
		nome = *payload.Nome
	}
	email := atual.Email
	if payload.Email != nil {
		email = *payload.Email
	}
	categoria := atual.Categoria
	if payload.Categoria != nil {
		categoria = *payload.Categoria
	}
	ativo := atual.Ativo
	if payload.Ativo != nil {
		ativo = *payload.Ativo
	}

	usuario, err := h.usuarios.Update(r.Context(), id, nome, email, categoria, ativo)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, CodeNotFound, "usuário não encontrado", nil)
			return
		}
		if errors.Is(err, service.ErrCategoriaInvalida) {
			WriteError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
			return
		}
		WriteError(w, http.StatusBadRequest, CodeValidation, "não foi possível atualizar usuário", map[string]any{"motivo": err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"usuario": toUsuarioView(usuario)})
}

// ListLoginsUsuario devolve o histórico de sessões de uma conta.
func (h *Handler) ListLoginsUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "id inválido", nil)
		return
	}

	logins, err := h.usuarios.ListLogins(r.Context(), id, 50)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, CodeNotFound, "usuário não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeInternal, "não foi possível listar sessões", nil)
		return
	}

	views := make([]loginView, 0, len(logins))
	for _, l := range logins {
		views = append(views, toLoginView(l))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"logins": views})
}
