package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usuarioColumns = `id, nome, email, cpf, categoria, ativo, last_active, criado_em, atualizado_em`

// Queries fornece acesso aos dados de usuários e logins.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o conjunto de queries sobre o pool informado.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// GetUsuarioByEmail busca conta pelo e-mail normalizado em minúsculas.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE lower(email) = $1
    `
	row := q.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	return scanUsuario(row)
}

// GetUsuarioByCPF busca conta pelo CPF já normalizado (11 dígitos).
func (q *Queries) GetUsuarioByCPF(ctx context.Context, cpf string) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE cpf = $1
    `
	row := q.pool.QueryRow(ctx, query, cpf)
	return scanUsuario(row)
}

// GetUsuarioByID busca conta pelo identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE id = $1
    `
	row := q.pool.QueryRow(ctx, query, id)
	return scanUsuario(row)
}

// ListUsuarios devolve todas as contas em ordem de criação.
func (q *Queries) ListUsuarios(ctx context.Context) ([]Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        ORDER BY criado_em ASC
    `
	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

// ListOnline devolve contas com heartbeat posterior ao corte informado.
func (q *Queries) ListOnline(ctx context.Context, cutoff time.Time) ([]Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE ativo AND last_active IS NOT NULL AND last_active > $1
        ORDER BY last_active DESC
    `
	rows, err := q.pool.Query(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

// InsertUsuario cria nova conta.
func (q *Queries) InsertUsuario(ctx context.Context, arg InsertUsuarioParams) (Usuario, error) {
	const query = `
        INSERT INTO usuarios (id, nome, email, cpf, categoria, ativo)
        VALUES ($1, $2, lower($3), $4, $5, $6)
        RETURNING ` + usuarioColumns + `
    `
	row := q.pool.QueryRow(ctx, query, arg.ID, arg.Nome, arg.Email, arg.CPF, arg.Categoria, arg.Ativo)
	return scanUsuario(row)
}

// InsertUsuarioTx cria conta dentro de uma transação já aberta.
func (q *Queries) InsertUsuarioTx(ctx context.Context, tx pgx.Tx, arg InsertUsuarioParams) (Usuario, error) {
	const query = `
        INSERT INTO usuarios (id, nome, email, cpf, categoria, ativo)
        VALUES ($1, $2, lower($3), $4, $5, $6)
        RETURNING ` + usuarioColumns + `
    `
	row := tx.QueryRow(ctx, query, arg.ID, arg.Nome, arg.Email, arg.CPF, arg.Categoria, arg.Ativo)
	return scanUsuario(row)
}

// UpdateUsuario aplica edição administrativa sobre a conta.
func (q *Queries) UpdateUsuario(ctx context.Context, arg UpdateUsuarioParams) (Usuario, error) {
	const query = `
        UPDATE usuarios
        SET nome = $2, email = lower($3), categoria = $4, ativo = $5, atualizado_em = now()
        WHERE id = $1
        RETURNING ` + usuarioColumns + `
    `
	row := q.pool.QueryRow(ctx, query, arg.ID, arg.Nome, arg.Email, arg.Categoria, arg.Ativo)
	return scanUsuario(row)
}

// UpdateLastActive registra o heartbeat do usuário.
func (q *Queries) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `
        UPDATE usuarios
        SET last_active = $2
        WHERE id = $1
    `
	cmd, err := q.pool.Exec(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertLogin grava o registro de entrada da sessão.
func (q *Queries) InsertLogin(ctx context.Context, arg InsertLoginParams) (Login, error) {
	const query = `
        INSERT INTO logins (id, usuario_id, login_em, ip, navegador)
        VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''))
        RETURNING id, usuario_id, login_em, logout_em, tempo_logado, COALESCE(ip,''), COALESCE(navegador,'')
    `
	row := q.pool.QueryRow(ctx, query, arg.ID, arg.UsuarioID, arg.LoginEm.UTC(), arg.IP, arg.Navegador)
	return scanLogin(row)
}

// CloseUltimoLogin fecha o registro aberto mais recente do usuário,
// calculando tempo_logado em segundos inteiros. Devolve ErrNotFound quando
// não há sessão aberta para atribuir.
func (q *Queries) CloseUltimoLogin(ctx context.Context, usuarioID uuid.UUID, at time.Time) (Login, error) {
	const query = `
        UPDATE logins
        SET logout_em = $2,
            tempo_logado = floor(extract(epoch FROM ($2 - login_em)))::bigint
        WHERE id = (
            SELECT id FROM logins
            WHERE usuario_id = $1 AND logout_em IS NULL
            ORDER BY login_em DESC
            LIMIT 1
        )
        RETURNING id, usuario_id, login_em, logout_em, tempo_logado, COALESCE(ip,''), COALESCE(navegador,'')
    `
	row := q.pool.QueryRow(ctx, query, usuarioID, at.UTC())
	return scanLogin(row)
}

// ListLoginsByUsuario devolve o histórico de sessões da conta.
func (q *Queries) ListLoginsByUsuario(ctx context.Context, usuarioID uuid.UUID, limit int) ([]Login, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, usuario_id, login_em, logout_em, tempo_logado, COALESCE(ip,''), COALESCE(navegador,'')
        FROM logins
        WHERE usuario_id = $1
        ORDER BY login_em DESC
        LIMIT $2
    `
	rows, err := q.pool.Query(ctx, query, usuarioID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logins []Login
	for rows.Next() {
		l, err := scanLogin(rows)
		if err != nil {
			return nil, err
		}
		logins = append(logins, l)
	}
	return logins, rows.Err()
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.CPF, &u.Categoria, &u.Ativo, &u.LastActive, &u.CriadoEm, &u.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usuario{}, ErrNotFound
		}
		return Usuario{}, err
	}
	return u, nil
}

func scanLogin(row pgx.Row) (Login, error) {
	var l Login
	err := row.Scan(&l.ID, &l.UsuarioID, &l.LoginEm, &l.LogoutEm, &l.TempoLogado, &l.IP, &l.Navegador)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Login{}, ErrNotFound
		}
		return Login{}, err
	}
	return l, nil
}
