package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/infrastructure/database/dbtest"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "Planner", Version: "test", PublicURL: "http://planner.test"},
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		JWT:      config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "planner"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*", RateLimitRequests: 1000, RateLimitWindow: time.Minute, BcryptCost: 4},
		Metrics:  config.MetricsConfig{Enabled: true},
		Storage: config.StorageConfig{
			Type:         "local",
			Folder:       "planner-attachments",
			MaxFileSize:  1024,
			AllowedTypes: []string{"txt"},
			LocalPath:    t.TempDir(),
			LocalBaseURL: "http://localhost/files",
		},
		Bot:    config.BotConfig{SkipAuth: true, LinkStore: "memory", LinkCodeTTL: 10 * time.Minute, SweepEvery: time.Minute},
		Notify: config.NotifyConfig{Enabled: true, MaxInFlight: 2, WebhookTimeout: time.Second},
		Lock:   config.LockConfig{Type: "memory"},
		Board:  config.BoardConfig{DefaultColumns: []string{"Por hacer", "Hecho"}},
	}
}

func newTestServer(t *testing.T) *Server {
	return newServerWith(t, testConfig(t), logger.NewNop())
}

func newServerWith(t *testing.T, cfg *config.Config, log *logger.Logger) *Server {
	s, err := New(cfg, dbtest.New(t), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/health/detailed")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Status string                            `json:"status"`
		Checks map[string]map[string]interface{} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["database"]["status"])
	assert.NotContains(t, body.Checks, "redis")

	rec = get(t, s, "/ready")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ready map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, "sqlite", ready["driver"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	get(t, s, "/health")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestAPIIsMounted(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"ana@example.test","password":"secret1","name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = get(t, s, "/api/boards")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Missing authorization header"}`, rec.Body.String())
}

func TestRequestLogCarriesRequestAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := newServerWith(t, testConfig(t), logger.FromZap(zap.New(core)))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"ana@example.test","password":"secret1","name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	req = httptest.NewRequest(http.MethodGet, "/api/boards", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("HTTP request").FilterField(zap.String("uri", "/api/boards")).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rec.Header().Get("X-Request-Id"), fields["request_id"])
	assert.Equal(t, auth.User.ID, fields["user_id"])
}

type channelRecorder struct {
	mu      sync.Mutex
	paths   []string
	replies []botframework.Activity
}

func (r *channelRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, _ := io.ReadAll(req.Body)
	var act botframework.Activity
	_ = json.Unmarshal(data, &act)
	r.mu.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.replies = append(r.replies, act)
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func postActivity(t *testing.T, s *Server, serviceURL string) *httptest.ResponseRecorder {
	activity := botframework.Activity{
		Type:         botframework.TypeMessage,
		ID:           "act1",
		ServiceURL:   serviceURL,
		ChannelID:    "emulator",
		From:         botframework.ChannelAccount{ID: "29:ana", Name: "Ana"},
		Recipient:    botframework.ChannelAccount{ID: "28:bot"},
		Conversation: botframework.ConversationAccount{ID: "conv1"},
		Text:         "ayuda",
	}
	body, err := json.Marshal(activity)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBotEndpointRepliesThroughConnector(t *testing.T) {
	recorder := &channelRecorder{}
	channel := httptest.NewServer(recorder)
	defer channel.Close()

	s := newTestServer(t)
	rec := postActivity(t, s, channel.URL)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.replies, 1)
	assert.Equal(t, "/v3/conversations/conv1/activities/act1", recorder.paths[0])
	assert.Equal(t, "29:ana", recorder.replies[0].Recipient.ID)
	assert.NotEmpty(t, recorder.replies[0].Text)
}

func TestBotEndpointDisabledWithoutCredentials(t *testing.T) {
	recorder := &channelRecorder{}
	channel := httptest.NewServer(recorder)
	defer channel.Close()

	cfg := testConfig(t)
	cfg.Bot.SkipAuth = false
	s := newServerWith(t, cfg, logger.NewNop())

	rec := postActivity(t, s, channel.URL)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Empty(t, recorder.paths)
}
