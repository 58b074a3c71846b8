package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/portalaovivo/eventos/internal/auth"
	"github.com/portalaovivo/eventos/internal/config"
	"github.com/portalaovivo/eventos/internal/repo"
	"github.com/portalaovivo/eventos/internal/service"
)

const testSecret = "segredo-de-teste-com-tamanho-suficiente"

type stubRepo struct {
	usuarios   []repo.Usuario
	logins     []repo.Login
	lastActive map[uuid.UUID]time.Time
}

func (s *stubRepo) GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error) {
	for _, u := range s.usuarios {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubRepo) GetUsuarioByCPF(ctx context.Context, cpf string) (repo.Usuario, error) {
	for _, u := range s.usuarios {
		if u.CPF == cpf {
			return u, nil
		}
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	for _, u := range s.usuarios {
		if u.ID == id {
			return u, nil
		}
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubRepo) InsertLogin(ctx context.Context, arg repo.InsertLoginParams) (repo.Login, error) {
	l := repo.Login{ID: arg.ID, UsuarioID: arg.UsuarioID, LoginEm: arg.LoginEm, IP: arg.IP, Navegador: arg.Navegador}
	s.logins = append(s.logins, l)
	return l, nil
}

func (s *stubRepo) CloseUltimoLogin(ctx context.Context, usuarioID uuid.UUID, at time.Time) (repo.Login, error) {
	for i := len(s.logins) - 1; i >= 0; i-- {
		l := &s.logins[i]
		if l.UsuarioID == usuarioID && l.LogoutEm == nil {
			logout := at
			tempo := int64(at.Sub(l.LoginEm).Seconds())
			l.LogoutEm = &logout
			l.TempoLogado = &tempo
			return *l, nil
		}
	}
	return repo.Login{}, repo.ErrNotFound
}

func (s *stubRepo) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.GetUsuarioByID(ctx, id); err != nil {
		return err
	}
	if s.lastActive == nil {
		s.lastActive = make(map[uuid.UUID]time.Time)
	}
	s.lastActive[id] = at
	return nil
}

func (s *stubRepo) ListOnline(ctx context.Context, cutoff time.Time) ([]repo.Usuario, error) {
	var online []repo.Usuario
	for _, u := range s.usuarios {
		if at, ok := s.lastActive[u.ID]; ok && at.After(cutoff) {
			online = append(online, u)
		}
	}
	return online, nil
}

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = "1"
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

type testEnv struct {
	repo    *stubRepo
	router  http.Handler
	tokens  *auth.TokenManager
	admin   repo.Usuario
	regular repo.Usuario
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	admin := repo.Usuario{
		ID:        uuid.New(),
		Nome:      "Admin Teste",
		Email:     "admin@x.com",
		CPF:       "11144477735",
		Categoria: auth.CategoriaAdmin,
		Ativo:     true,
	}
	regular := repo.Usuario{
		ID:        uuid.New(),
		Nome:      "Usuária Comum",
		Email:     "user@x.com",
		CPF:       "12345678909",
		Categoria: auth.CategoriaUser,
		Ativo:     true,
	}

	repoStub := &stubRepo{usuarios: []repo.Usuario{admin, regular}}

	cfg := &config.Config{
		AuthSecret:      testSecret,
		TokenTTL:        time.Hour,
		PresenceTTL:     90 * time.Second,
		DevCookies:      true,
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	tokens := auth.NewTokenManager(cfg.AuthSecret, cfg.TokenTTL)
	sessions := service.NewSessionService(repoStub, &stubRedis{}, tokens, cfg.PresenceTTL)

	router := NewRouter(cfg, nil, nil, tokens, sessions, nil)

	return &testEnv{repo: repoStub, router: router, tokens: tokens, admin: admin, regular: regular}
}

func (env *testEnv) doLogin(t *testing.T, identifier string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"identificador": identifier})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec.Result()
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "authToken" {
			return c
		}
	}
	return nil
}

func TestLoginDefineCookieDeSessao(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doLogin(t, "admin@x.com")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", resp.StatusCode)
	}

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("cookie authToken ausente")
	}
	if !cookie.HttpOnly {
		t.Error("cookie deve ser HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, esperado Lax", cookie.SameSite)
	}
	if cookie.MaxAge != int(time.Hour.Seconds()) {
		t.Errorf("MaxAge = %d, esperado %d", cookie.MaxAge, int(time.Hour.Seconds()))
	}

	if _, err := env.tokens.Verify(cookie.Value); err != nil {
		t.Errorf("token do cookie inválido: %v", err)
	}

	if len(env.repo.logins) != 1 {
		t.Errorf("registros de login = %d, esperado 1", len(env.repo.logins))
	}
}

func TestLoginRespostaGenericaParaFalhas(t *testing.T) {
	env := newTestEnv(t)

	inativo := repo.Usuario{
		ID:        uuid.New(),
		Email:     "inativo@x.com",
		Categoria: auth.CategoriaUser,
		Ativo:     false,
	}
	env.repo.usuarios = append(env.repo.usuarios, inativo)

	var mensagens []string
	for _, identifier := range []string{"nonexistent@x.com", "inativo@x.com"} {
		resp := env.doLogin(t, identifier)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %q: status = %d, esperado 401", identifier, resp.StatusCode)
		}
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
		mensagens = append(mensagens, envelope.Error.Message)
	}

	// Conta inexistente e conta desativada não podem ser distinguíveis.
	if mensagens[0] != mensagens[1] {
		t.Errorf("mensagens distintas revelam estado da conta: %q vs %q", mensagens[0], mensagens[1])
	}

	if len(env.repo.logins) != 0 {
		t.Errorf("registros de login = %d, esperado 0", len(env.repo.logins))
	}
}

func TestMeExigeSessao(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperado 401", rec.Code)
	}

	resp := env.doLogin(t, "user@x.com")
	cookie := sessionCookie(t, resp)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", rec.Code)
	}

	var envelope struct {
		Data struct {
			User service.Perfil `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.User.Email != "user@x.com" || envelope.Data.User.Categoria != auth.CategoriaUser {
		t.Errorf("perfil inesperado: %+v", envelope.Data.User)
	}
}

func TestRotaAdminExigeCategoria(t *testing.T) {
	env := newTestEnv(t)

	adminCookie := sessionCookie(t, env.doLogin(t, "admin@x.com"))
	userCookie := sessionCookie(t, env.doLogin(t, "user@x.com"))

	req := httptest.NewRequest(http.MethodGet, "/admin/online", nil)
	req.AddCookie(adminCookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d, esperado 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/online", nil)
	req.AddCookie(userCookie)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user: status = %d, esperado 403", rec.Code)
	}
}

func TestHeartbeatAtualizaAtividade(t *testing.T) {
	env := newTestEnv(t)

	cookie := sessionCookie(t, env.doLogin(t, "user@x.com"))

	req := httptest.NewRequest(http.MethodPost, "/auth/heartbeat", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", rec.Code)
	}

	if _, ok := env.repo.lastActive[env.regular.ID]; !ok {
		t.Error("last_active não atualizado")
	}
}

func TestHeartbeatComTokenExpirado(t *testing.T) {
	env := newTestEnv(t)

	// Token emitido no passado, já vencido em relação ao relógio real.
	passado := time.Now().Add(-2 * time.Hour)
	emissor := auth.NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return passado })
	expirado, err := emissor.Issue(env.regular.ID.String(), env.regular.Nome, env.regular.Email, env.regular.Categoria)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/heartbeat", nil)
	req.AddCookie(&http.Cookie{Name: "authToken", Value: expirado})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperado 401", rec.Code)
	}

	if _, ok := env.repo.lastActive[env.regular.ID]; ok {
		t.Error("heartbeat expirado não deveria atualizar last_active")
	}
}

func TestLogoutSempreLimpaCookie(t *testing.T) {
	env := newTestEnv(t)

	// Sessão válida: fecha o registro e limpa o cookie.
	cookie := sessionCookie(t, env.doLogin(t, "user@x.com"))
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", rec.Code)
	}
	cleared := sessionCookie(t, rec.Result())
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("cookie não foi limpo")
	}
	if env.repo.logins[0].LogoutEm == nil {
		t.Error("registro de login não foi fechado")
	}

	// Token vencido: sem registro para atribuir, mas o cookie é limpo mesmo assim.
	passado := time.Now().Add(-2 * time.Hour)
	emissor := auth.NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return passado })
	expirado, err := emissor.Issue(env.regular.ID.String(), env.regular.Nome, env.regular.Email, env.regular.Categoria)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "authToken", Value: expirado})
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout com token expirado: status = %d, esperado 200", rec.Code)
	}
	cleared = sessionCookie(t, rec.Result())
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("cookie não foi limpo no logout com token expirado")
	}
}
