package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portalaovivo/eventos/internal/auth"
	"github.com/portalaovivo/eventos/internal/db"
	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/util"
)

var (
	// ErrCategoriaInvalida indica categoria fora do conjunto admin|user.
	ErrCategoriaInvalida = errors.New("categoria inválida")
)

type usuarioRepository interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	ListUsuarios(ctx context.Context) ([]repo.Usuario, error)
	InsertUsuario(ctx context.Context, arg repo.InsertUsuarioParams) (repo.Usuario, error)
	InsertUsuarioTx(ctx context.Context, tx pgx.Tx, arg repo.InsertUsuarioParams) (repo.Usuario, error)
	UpdateUsuario(ctx context.Context, arg repo.UpdateUsuarioParams) (repo.Usuario, error)
	ListLoginsByUsuario(ctx context.Context, usuarioID uuid.UUID, limit int) ([]repo.Login, error)
}

// UsuarioService centraliza casos de uso administrativos sobre contas.
type UsuarioService struct {
	repo usuarioRepository
	pool *pgxpool.Pool
}

// NewUsuarioService cria nova instância do serviço.
func NewUsuarioService(r usuarioRepository, pool *pgxpool.Pool) *UsuarioService {
	return &UsuarioService{repo: r, pool: pool}
}

// NovoUsuario agrupa os campos de criação de conta.
type NovoUsuario struct {
	Nome      string
	Email     string
	CPF       string
	Categoria string
	Ativo     bool
}

func normalizeCategoria(categoria string) (string, error) {
	categoria = strings.ToLower(strings.TrimSpace(categoria))
	if categoria == "" {
		categoria = auth.CategoriaUser
	}
	if categoria != auth.CategoriaAdmin && categoria != auth.CategoriaUser {
		return "", ErrCategoriaInvalida
	}
	return categoria, nil
}

func (s *UsuarioService) validate(input *NovoUsuario) error {
	if err := util.RequireString(input.Nome, "nome"); err != nil {
		return err
	}
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.CPF) == "" {
		return errors.New("informe e-mail ou CPF")
	}
	if strings.TrimSpace(input.Email) != "" {
		if err := util.ValidateEmail(input.Email); err != nil {
			return err
		}
		input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	}
	if strings.TrimSpace(input.CPF) != "" {
		cpf, err := util.NormalizeCPF(input.CPF)
		if err != nil {
			return err
		}
		input.CPF = cpf
	}
	categoria, err := normalizeCategoria(input.Categoria)
	if err != nil {
		return err
	}
	input.Categoria = categoria
	return nil
}

// Create cria uma conta já apta a autenticar.
func (s *UsuarioService) Create(ctx context.Context, input NovoUsuario) (repo.Usuario, error) {
	if err := s.validate(&input); err != nil {
		return repo.Usuario{}, err
	}
	return s.repo.InsertUsuario(ctx, repo.InsertUsuarioParams{
		ID:        uuid.New(),
		Nome:      strings.TrimSpace(input.Nome),
		Email:     input.Email,
		CPF:       input.CPF,
		Categoria: input.Categoria,
		Ativo:     input.Ativo,
	})
}

// Update aplica edição administrativa (nome, e-mail, categoria, ativo).
// E-mail segue opcional na edição: contas somente-CPF mantêm o campo vazio.
func (s *UsuarioService) Update(ctx context.Context, id uuid.UUID, nome, email, categoria string, ativo bool) (repo.Usuario, error) {
	if err := util.RequireString(nome, "nome"); err != nil {
		return repo.Usuario{}, err
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return repo.Usuario{}, err
		}
		email = strings.ToLower(email)
	}
	normalized, err := normalizeCategoria(categoria)
	if err != nil {
		return repo.Usuario{}, err
	}
	if email == "" {
		atual, err := s.repo.GetUsuarioByID(ctx, id)
		if err != nil {
			return repo.Usuario{}, err
		}
		if strings.TrimSpace(atual.CPF) == "" {
			return repo.Usuario{}, errors.New("informe e-mail ou CPF")
		}
	}
	return s.repo.UpdateUsuario(ctx, repo.UpdateUsuarioParams{
		ID:        id,
		Nome:      strings.TrimSpace(nome),
		Email:     email,
		Categoria: normalized,
		Ativo:     ativo,
	})
}

// List devolve todas as contas.
func (s *UsuarioService) List(ctx context.Context) ([]repo.Usuario, error) {
	return s.repo.ListUsuarios(ctx)
}

// GetByID devolve uma conta específica.
func (s *UsuarioService) GetByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	return s.repo.GetUsuarioByID(ctx, id)
}

// ListLogins devolve o histórico de sessões de uma conta.
func (s *UsuarioService) ListLogins(ctx context.Context, id uuid.UUID, limit int) ([]repo.Login, error) {
	if _, err := s.repo.GetUsuarioByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListLoginsByUsuario(ctx, id, limit)
}

// Import cria um lote de contas em uma única transação. Usado pelo fluxo de
// importação administrativa: ou todas entram, ou nenhuma.
func (s *UsuarioService) Import(ctx context.Context, lote []NovoUsuario) ([]repo.Usuario, error) {
	validados := make([]NovoUsuario, 0, len(lote))
	for i := range lote {
		input := lote[i]
		if err := s.validate(&input); err != nil {
			return nil, err
		}
		validados = append(validados, input)
	}

	criados := make([]repo.Usuario, 0, len(validados))
	err := db.WithTx(ctx, s.pool, func(pctx context.Context, tx pgx.Tx) error {
		for _, input := range validados {
			u, err := s.repo.InsertUsuarioTx(pctx, tx, repo.InsertUsuarioParams{
				ID:        uuid.New(),
				Nome:      strings.TrimSpace(input.Nome),
				Email:     input.Email,
				CPF:       input.CPF,
				Categoria: input.Categoria,
				Ativo:     input.Ativo,
			})
			if err != nil {
				return err
			}
			criados = append(criados, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return criados, nil
}
