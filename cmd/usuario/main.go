package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/portalaovivo/eventos/internal/db"
	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	queries := repo.New(pool)
	usuarios := service.NewUsuarioService(queries, pool)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "criar":
		if err := runCriar(ctx, usuarios, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar usuário")
		}
	case "listar":
		if err := runListar(ctx, usuarios); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar usuários")
		}
	case "ativar":
		if err := runSetAtivo(ctx, usuarios, args, true); err != nil {
			log.Fatal().Err(err).Msg("falha ao ativar usuário")
		}
	case "desativar":
		if err := runSetAtivo(ctx, usuarios, args, false); err != nil {
			log.Fatal().Err(err).Msg("falha ao desativar usuário")
		}
	case "importar":
		if err := runImportar(ctx, usuarios, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao importar usuários")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: usuario <comando>

comandos:
  criar     -nome <nome> [-email <email>] [-cpf <cpf>] [-categoria admin|user]
  listar
  ativar    -id <uuid>
  desativar -id <uuid>
  importar  -arquivo <csv>   (colunas: nome,email,cpf,categoria)`)
}

func runCriar(ctx context.Context, usuarios *service.UsuarioService, args []string) error {
	fs := flag.NewFlagSet("criar", flag.ExitOnError)
	nome := fs.String("nome", "", "nome de exibição")
	email := fs.String("email", "", "e-mail (opcional se CPF informado)")
	cpf := fs.String("cpf", "", "CPF (opcional se e-mail informado)")
	categoria := fs.String("categoria", "user", "admin ou user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	usuario, err := usuarios.Create(ctx, service.NovoUsuario{
		Nome:      *nome,
		Email:     *email,
		CPF:       *cpf,
		Categoria: *categoria,
		Ativo:     true,
	})
	if err != nil {
		return err
	}

	log.Info().Str("id", usuario.ID.String()).Str("categoria", usuario.Categoria).Msg("usuário criado")
	return nil
}

func runListar(ctx context.Context, usuarios *service.UsuarioService) error {
	lista, err := usuarios.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range lista {
		status := "ativo"
		if !u.Ativo {
			status = "inativo"
		}
		fmt.Printf("%s  %-30s  %-10s  %s\n", u.ID, u.Email, u.Categoria, status)
	}
	return nil
}

func runSetAtivo(ctx context.Context, usuarios *service.UsuarioService, args []string, ativo bool) error {
	fs := flag.NewFlagSet("ativo", flag.ExitOnError)
	idStr := fs.String("id", "", "id do usuário")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := uuid.Parse(strings.TrimSpace(*idStr))
	if err != nil {
		return errors.New("id inválido")
	}

	atual, err := usuarios.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := usuarios.Update(ctx, id, atual.Nome, atual.Email, atual.Categoria, ativo); err != nil {
		return err
	}

	log.Info().Str("id", id.String()).Bool("ativo", ativo).Msg("usuário atualizado")
	return nil
}

func runImportar(ctx context.Context, usuarios *service.UsuarioService, args []string) error {
	fs := flag.NewFlagSet("importar", flag.ExitOnError)
	arquivo := fs.String("arquivo", "", "arquivo CSV com colunas nome,email,cpf,categoria")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*arquivo) == "" {
		return errors.New("informe -arquivo")
	}

	f, err := os.Open(*arquivo)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4

	var lote []service.NovoUsuario
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		lote = append(lote, service.NovoUsuario{
			Nome:      record[0],
			Email:     record[1],
			CPF:       record[2],
			Categoria: record[3],
			Ativo:     true,
		})
	}

	criados, err := usuarios.Import(ctx, lote)
	if err != nil {
		return err
	}

	log.Info().Int("total", len(criados)).Msg("usuários importados")
	return nil
}
