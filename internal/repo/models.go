package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa uma conta do portal.
type Usuario struct {
	ID           uuid.UUID
	Nome         string
	Email        string
	CPF          string
	Categoria    string
	Ativo        bool
	LastActive   *time.Time
	CriadoEm     time.Time
	AtualizadoEm *time.Time
}

// Login modela uma linha da tabela de auditoria de sessões.
type Login struct {
	ID          uuid.UUID
	UsuarioID   uuid.UUID
	LoginEm     time.Time
	LogoutEm    *time.Time
	TempoLogado *int64
	IP          string
	Navegador   string
}

// InsertUsuarioParams agrupa os campos de criação de conta.
type InsertUsuarioParams struct {
	ID        uuid.UUID
	Nome      string
	Email     string
	CPF       string
	Categoria string
	Ativo     bool
}

// UpdateUsuarioParams agrupa os campos editáveis pelo admin.
type UpdateUsuarioParams struct {
	ID        uuid.UUID
	Nome      string
	Email     string
	Categoria string
	Ativo     bool
}

// InsertLoginParams agrupa os campos do registro de entrada.
type InsertLoginParams struct {
	ID        uuid.UUID
	UsuarioID uuid.UUID
	LoginEm   time.Time
	IP        string
	Navegador string
}
