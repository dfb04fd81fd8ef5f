package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"memoriza-service/internal/config"
	"memoriza-service/internal/devapi"
	wstypes "memoriza-service/internal/domain/websocket"
	"memoriza-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stack struct {
	proxy *httptest.Server
	api   *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := zap.NewNop()

	tokens, err := jwt.Ephemeral(jwt.Config{Issuer: "memoriza-api", Audience: "memoriza-web", TTL: time.Hour, KID: "test"})
	if err != nil {
		t.Fatalf("Ephemeral: %v", err)
	}
	store := devapi.NewMemoryStore()
	if err := devapi.Seed(context.Background(), store, bcrypt.MinCost); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	api := httptest.NewServer(devapi.NewServer(store, tokens, bcrypt.MinCost, logger).Router())
	t.Cleanup(api.Close)

	pubPEM, err := tokens.PublicKeyPEM()
	if err != nil {
		t.Fatalf("PublicKeyPEM: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "api.pub")
	if err := os.WriteFile(keyPath, pubPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	cfg := &config.AppConfig{
		FrontendURL: "http://localhost:3000",
		CORSOrigins: []string{"http://localhost:3000"},
		Backend: config.BackendConfig{
			BaseURL:                api.URL,
			Timeout:                5 * time.Second,
			PermissionFetchTimeout: 5 * time.Second,
			TokenPublicKeyPath:     keyPath,
			TokenIssuer:            "memoriza-api",
			TokenAudience:          "memoriza-web",
		},
		Session: config.SessionConfig{IdleTimeout: time.Hour},
		Cookie:  config.CookieConfig{Name: "memoriza_session", MaxAge: 3600},
	}
	srv, err := NewServer(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	proxy := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		proxy.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})

	return &stack{proxy: proxy, api: api}
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (s *stack) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, base: s.proxy.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(method, path string, body any) (int, envelope) {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			b.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, b.base+path, &buf)
	if err != nil {
		b.t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (b *browser) login(email string) {
	b.t.Helper()
	status, env := b.do(http.MethodPost, "/api/v1/session/login", map[string]string{
		"identifier": email,
		"password":   devapi.DevPassword,
	})
	if status != http.StatusOK {
		b.t.Fatalf("login %s: status %d message %q", email, status, env.Message)
	}
}

// waitCapability polls until the capability flag settles to want.
func (b *browser) waitCapability(module, flag string, want bool) {
	b.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_, env := b.do(http.MethodGet, "/api/v1/session/capabilities/"+module, nil)
		var caps map[string]any
		_ = json.Unmarshal(env.Data, &caps)
		if caps[flag] == want {
			return
		}
		if time.Now().After(deadline) {
			b.t.Fatalf("%s.%s = %v, want %v", module, flag, caps[flag], want)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	s := newStack(t)
	status, _ := s.browser(t).do(http.MethodGet, "/api/v1/health", nil)
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func TestLoginFlow(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)

	status, env := b.do(http.MethodGet, "/api/v1/session/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	var view map[string]any
	_ = json.Unmarshal(env.Data, &view)
	if view["isAuthenticated"] != false {
		t.Errorf("anonymous view = %v", view)
	}

	status, env = b.do(http.MethodPost, "/api/v1/session/login", map[string]string{"identifier": devapi.OwnerEmail, "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", status)
	}
	if env.Message != "Usuário ou senha inválidos." {
		t.Errorf("backend message not surfaced: %q", env.Message)
	}

	b.login(devapi.OwnerEmail)
	_, env = b.do(http.MethodGet, "/api/v1/session/me", nil)
	_ = json.Unmarshal(env.Data, &view)
	if view["isAuthenticated"] != true || view["isAdmin"] != true {
		t.Errorf("owner view = %v", view)
	}

	b.do(http.MethodPost, "/api/v1/session/logout", nil)
	if status, _ := b.do(http.MethodGet, "/api/v1/admin/carousel", nil); status != http.StatusUnauthorized {
		t.Errorf("after logout: status %d", status)
	}
}

func TestEmployeeCarouselAccess(t *testing.T) {
	s := newStack(t)
	item := map[string]any{"imageUrl": "/images/banners/novo.jpg"}

	marketing := s.browser(t)
	marketing.login(devapi.MarketingEmail)
	marketing.waitCapability("carousel", "canCreate", true)

	status, env := marketing.do(http.MethodPost, "/api/v1/admin/carousel", item)
	if status != http.StatusCreated {
		t.Fatalf("marketing create: status %d message %q", status, env.Message)
	}

	stock := s.browser(t)
	stock.login(devapi.StockEmail)
	stock.waitCapability("carousel", "canView", true)

	_, env = stock.do(http.MethodGet, "/api/v1/session/me", nil)
	var view map[string]any
	_ = json.Unmarshal(env.Data, &view)
	if view["isAdmin"] != false {
		t.Errorf("employee with admin flag reported as admin: %v", view)
	}

	if status, _ := stock.do(http.MethodPost, "/api/v1/admin/carousel", item); status != http.StatusForbidden {
		t.Errorf("stock create: status %d", status)
	}
	if status, _ := stock.do(http.MethodGet, "/api/v1/admin/carousel", nil); status != http.StatusOK {
		t.Errorf("stock list: status %d", status)
	}
}

func TestReorderThroughProxy(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)
	b.login(devapi.OwnerEmail)

	status, env := b.do(http.MethodGet, "/api/v1/admin/carousel", nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	var items []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &items); err != nil || len(items) != 2 {
		t.Fatalf("items = %s", env.Data)
	}

	order := []int64{items[1].ID, items[0].ID}
	status, env = b.do(http.MethodPost, "/api/v1/admin/carousel/reorder", map[string]any{"itemIds": order})
	if status != http.StatusOK {
		t.Fatalf("reorder: status %d message %q", status, env.Message)
	}

	anon := s.browser(t)
	_, env = anon.do(http.MethodGet, "/api/v1/carousel", nil)
	var public []struct {
		ID        int64 `json:"id"`
		IsPrimary bool  `json:"isPrimary"`
	}
	if err := json.Unmarshal(env.Data, &public); err != nil || len(public) != 2 {
		t.Fatalf("public list = %s", env.Data)
	}
	if public[0].ID != order[0] || !public[0].IsPrimary {
		t.Errorf("storefront order = %+v", public)
	}

	status, _ = b.do(http.MethodPost, "/api/v1/admin/carousel/reorder", map[string]any{"itemIds": []int64{order[0]}})
	if status != http.StatusBadRequest {
		t.Errorf("partial order: status %d", status)
	}
}

func TestCallbackRedirects(t *testing.T) {
	s := newStack(t)

	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  string
	}{
		{"missing token", func(*testing.T) string { return "" }, "/login?error=missing_token"},
		{"undecodable token", func(*testing.T) string { return "not-a-token" }, "/login?error=invalid_token"},
		{"owner token", func(t *testing.T) string { return apiToken(t, s, devapi.OwnerEmail) }, "/admin"},
		{"customer token", func(t *testing.T) string { return apiToken(t, s, devapi.CustomerEmail) }, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := s.browser(t)
			path := "/api/v1/session/callback"
			if tok := tt.token(t); tok != "" {
				path += "?token=" + tok
			}
			req, _ := http.NewRequest(http.MethodGet, b.base+path, nil)
			resp, err := b.client.Do(req)
			if err != nil {
				t.Fatalf("callback: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusFound {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if got := resp.Header.Get("Location"); got != "http://localhost:3000"+tt.want {
				t.Errorf("location = %q", got)
			}
		})
	}
}

func apiToken(t *testing.T, s *stack, email string) string {
	t.Helper()
	body := strings.NewReader(`{"identifier":"` + email + `","password":"` + devapi.DevPassword + `"}`)
	resp, err := http.Post(s.api.URL+"/api/Auth/login", "application/json", body)
	if err != nil {
		t.Fatalf("api login: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		t.Fatalf("api login: status %d", resp.StatusCode)
	}
	return out.Token
}

func TestWebSocketSessionEvents(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)

	// establish the session cookie first
	if status, _ := b.do(http.MethodGet, "/api/v1/session/me", nil); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}

	wsURL := "ws" + strings.TrimPrefix(s.proxy.URL, "http") + "/api/v1/ws"
	header := http.Header{}
	req, _ := http.NewRequest(http.MethodGet, s.proxy.URL, nil)
	for _, c := range b.client.Jar.Cookies(req.URL) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	defer conn.Close()

	expect := func(want wstypes.EventType) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for {
			_ = conn.SetReadDeadline(deadline)
			_, raw, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("waiting for %s: %v", want, err)
			}
			msg, err := wstypes.ParseMessage(raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if msg.Type == want {
				return
			}
		}
	}

	expect(wstypes.EventTypeConnected)

	b.login(devapi.MarketingEmail)
	expect(wstypes.EventTypeAuthenticated)
	expect(wstypes.EventTypePermissionsLoaded)

	b.do(http.MethodPost, "/api/v1/session/logout", nil)
	expect(wstypes.EventTypeLoggedOut)
}

func TestCarouselEventsRequireView(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)
	b.login(devapi.CustomerEmail)

	wsURL := "ws" + strings.TrimPrefix(s.proxy.URL, "http") + "/api/v1/ws"
	req, _ := http.NewRequest(http.MethodGet, s.proxy.URL, nil)
	header := http.Header{}
	for _, c := range b.client.Jar.Cookies(req.URL) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := wstypes.NewMessage(wstypes.EventTypeSubscribe, wstypes.SubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelCarousel},
	})
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		msg, _ := wstypes.ParseMessage(raw)
		if msg.Type != wstypes.EventTypeSubscribe {
			continue
		}
		data, _ := msg.Data.(map[string]any)
		denied, _ := data["denied"].([]any)
		if len(denied) != 1 || denied[0] != string(wstypes.ChannelCarousel) {
			t.Errorf("subscribe reply = %v", data)
		}
		return
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)
	b.login(devapi.OwnerEmail)

	resp, err := http.Get(s.proxy.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.String()
	for _, name := range []string{"memoriza_login_total", "memoriza_backend_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metric %s missing", name)
		}
	}
	if !strings.Contains(body, `memoriza_login_total{method="password",outcome="success"} 1`) {
		t.Errorf("login success not counted")
	}
}

func TestForgedTokenGetsNoAdminAccess(t *testing.T) {
	s := newStack(t)

	enc := base64.RawURLEncoding
	forged := enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"1","email":"dona@memoriza.com","isAdmin":true}`)) + "."

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		wantCode int
	}{
		{"unsigned owner claims", func(*testing.T) string { return forged }, http.StatusForbidden},
		{"owner token signed by the API", func(t *testing.T) string { return apiToken(t, s, devapi.OwnerEmail) }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := s.browser(t)
			status, env := b.do(http.MethodPost, "/api/v1/session/token", map[string]string{"token": tt.token(t)})
			if status != http.StatusOK {
				t.Fatalf("token login: status %d message %q", status, env.Message)
			}
			if status, _ := b.do(http.MethodGet, "/api/v1/admin/ws/stats", nil); status != tt.wantCode {
				t.Errorf("ws stats: status %d, want %d", status, tt.wantCode)
			}
		})
	}
}

func TestForgedTokenCannotWatchCarousel(t *testing.T) {
	s := newStack(t)
	b := s.browser(t)

	enc := base64.RawURLEncoding
	forged := enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"1","isAdmin":true}`)) + "."
	if status, _ := b.do(http.MethodPost, "/api/v1/session/token", map[string]string{"token": forged}); status != http.StatusOK {
		t.Fatalf("token login: status %d", status)
	}

	wsURL := "ws" + strings.TrimPrefix(s.proxy.URL, "http") + "/api/v1/ws"
	req, _ := http.NewRequest(http.MethodGet, s.proxy.URL, nil)
	header := http.Header{}
	for _, c := range b.client.Jar.Cookies(req.URL) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := wstypes.NewMessage(wstypes.EventTypeSubscribe, wstypes.SubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelCarousel},
	})
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		msg, _ := wstypes.ParseMessage(raw)
		if msg.Type != wstypes.EventTypeSubscribe {
			continue
		}
		data, _ := msg.Data.(map[string]any)
		denied, _ := data["denied"].([]any)
		if len(denied) != 1 || denied[0] != string(wstypes.ChannelCarousel) {
			t.Errorf("subscribe reply = %v", data)
		}
		return
	}
}
