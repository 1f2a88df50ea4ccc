package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/adapters/linkstore"
	"github.com/plannerhq/planner/internal/adapters/repository"
	"github.com/plannerhq/planner/internal/adapters/storage"
	"github.com/plannerhq/planner/internal/application/services"
	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/infrastructure/database/dbtest"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.MentionNotification
}

func (n *recordingNotifier) NotifyMention(m ports.MentionNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

type api struct {
	t        *testing.T
	e        *echo.Echo
	users    ports.UserRepository
	notifier *recordingNotifier
}

func newAPI(t *testing.T) *api {
	db := dbtest.New(t)
	log := logger.NewNop()
	users := repository.NewUserRepository(db)
	boards := repository.NewBoardRepository(db)
	columns := repository.NewColumnRepository(db)
	cards := repository.NewCardRepository(db)
	store := storage.NewLocalStorage(afero.NewMemMapFs(), "http://files.test")
	locker := lock.NewMemoryLocker()
	notifier := &recordingNotifier{}

	auth := services.NewAuthService(users, config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "planner"}, 4, log)
	handlers := Handlers{
		Auth:  NewAuthHandler(auth, log),
		Users: NewUserHandler(services.NewUserService(users, linkstore.NewMemoryStore(), log), log),
		Admin: NewAdminHandler(services.NewAdminService(users, repository.NewDepartmentRepository(db), store, locker, 4, log), log),
		Boards: NewBoardHandler(
			services.NewBoardService(boards, users, store, []string{"Por hacer", "En progreso", "Hecho"}, log),
			services.NewColumnService(columns, boards, users, store, locker, log),
			log,
		),
		Cards: NewCardHandler(services.NewCardService(cards, columns, boards, users, store, locker, metrics.New(), log), log),
		Comments: NewCommentHandler(services.NewCommentService(
			repository.NewCommentRepository(db), cards, boards, users, notifier, "http://planner.test", log,
		), log),
		Attachment: NewAttachmentHandler(services.NewAttachmentService(
			repository.NewAttachmentRepository(db), cards, boards, users, store,
			config.StorageConfig{Folder: "planner-attachments", MaxFileSize: 1024, AllowedTypes: []string{"png", "txt"}},
			log,
		), log),
	}

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log.Errorw)
	RegisterRoutes(e.Group("/api"), handlers, Authenticate(auth, log))

	return &api{t: t, e: e, users: users, notifier: notifier}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) register(name string) (string, *entities.User) {
	a.t.Helper()
	email := strings.ToLower(strings.Fields(name)[0]) + "@example.test"
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret1", "name": name,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp ports.AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[ports.ErrorResponse](t, rec).Message
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t)
	token, user := a.register("Ana García")
	assert.NotEmpty(t, token)
	assert.Equal(t, "ana@example.test", user.Email)

	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.test", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", message(t, rec))

	rec = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ana@example.test", "password": "secret1", "name": "Otra"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "secret1", "name": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "Email")

	rec = a.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode[entities.User](t, rec).ID)

	require.NoError(t, a.users.UpdateActive(context.Background(), user.ID, false))
	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.test", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/boards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _ := a.register("Ana")
	withHeader := func(value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
		req.Header.Set(echo.HeaderAuthorization, value)
		rr := httptest.NewRecorder()
		a.e.ServeHTTP(rr, req)
		return rr
	}
	assert.Equal(t, http.StatusUnauthorized, withHeader("Bearer").Code)
	assert.Equal(t, http.StatusForbidden, withHeader("Token abc").Code)
	assert.Equal(t, http.StatusForbidden, withHeader("Basic "+token).Code)
	assert.Equal(t, http.StatusOK, withHeader("bearer "+token).Code)

	rec = a.do(http.MethodGet, "/api/boards", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid or expired token", message(t, rec))

	rec = a.do(http.MethodGet, "/api/departments", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBoardAndCardFlow(t *testing.T) {
	a := newAPI(t)
	ana, _ := a.register("Ana")
	stranger, _ := a.register("Stranger")

	rec := a.do(http.MethodPost, "/api/boards", ana, map[string]string{"name": "Marketing"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	board := decode[entities.Board](t, rec)

	rec = a.do(http.MethodGet, "/api/boards/"+board.ID.String(), ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[entities.BoardDetail](t, rec)
	require.Len(t, detail.Columns, 3)
	todo, doing := detail.Columns[0], detail.Columns[1]
	assert.Equal(t, "Por hacer", todo.Name)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/boards/"+board.ID.String(), stranger, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/boards/00000000-0000-0000-0000-000000000001", ana, nil).Code)
	rec = a.do(http.MethodGet, "/api/boards/abc", ana, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", message(t, rec))

	rec = a.do(http.MethodPost, "/api/columns/"+todo.ID.String()+"/cards", ana, map[string]string{"title": "Banner", "priority": "critica"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/columns/"+todo.ID.String()+"/cards", ana, map[string]string{"title": "Banner", "priority": "alta"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	card := decode[entities.Card](t, rec)
	require.NotNil(t, card.Priority)
	assert.Equal(t, entities.PriorityHigh, *card.Priority)

	rec = a.do(http.MethodPatch, "/api/cards/"+card.ID.String()+"/move", ana, map[string]interface{}{"columnId": doing.ID, "position": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[entities.Card](t, rec)
	assert.Equal(t, doing.ID, moved.ColumnID)
	assert.Equal(t, 0, moved.Position)

	rec = a.do(http.MethodPatch, "/api/cards/"+card.ID.String()+"/move", stranger, map[string]interface{}{"columnId": todo.ID, "position": 0})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/cards/"+card.ID.String()+"/labels", ana, map[string]string{"name": "web", "color": "#ff0000"})
	require.Equal(t, http.StatusCreated, rec.Code)
	label := decode[entities.Label](t, rec)
	rec = a.do(http.MethodDelete, fmt.Sprintf("/api/cards/%s/labels/%s", card.ID, label.ID), ana, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodDelete, "/api/cards/"+card.ID.String(), ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Card deleted", decode[ports.MessageResponse](t, rec).Message)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/cards/"+card.ID.String(), ana, nil).Code)
}

func TestCommentMentionEndpoint(t *testing.T) {
	a := newAPI(t)
	luis, _ := a.register("Luis")
	_, ana := a.register("Ana")

	board := decode[entities.Board](t, a.do(http.MethodPost, "/api/boards", luis, map[string]string{"name": "B"}))
	detail := decode[entities.BoardDetail](t, a.do(http.MethodGet, "/api/boards/"+board.ID.String(), luis, nil))
	card := decode[entities.Card](t, a.do(http.MethodPost, "/api/columns/"+detail.Columns[0].ID.String()+"/cards", luis, map[string]string{"title": "T"}))

	rec := a.do(http.MethodPost, "/api/cards/"+card.ID.String()+"/comments", luis, map[string]string{"content": "mira @Ana"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Luis", decode[entities.Comment](t, rec).UserName)
	require.Len(t, a.notifier.sent, 1)
	assert.Equal(t, ana.ID, a.notifier.sent[0].Recipient.ID)

	rec = a.do(http.MethodPost, "/api/cards/"+card.ID.String()+"/comments", luis, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/cards/"+card.ID.String()+"/comments", luis, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Comment](t, rec), 1)
}

func TestAttachmentUploadEndpoint(t *testing.T) {
	a := newAPI(t)
	ana, _ := a.register("Ana")
	board := decode[entities.Board](t, a.do(http.MethodPost, "/api/boards", ana, map[string]string{"name": "B"}))
	detail := decode[entities.BoardDetail](t, a.do(http.MethodGet, "/api/boards/"+board.ID.String(), ana, nil))
	card := decode[entities.Card](t, a.do(http.MethodPost, "/api/columns/"+detail.Columns[0].ID.String()+"/cards", ana, map[string]string{"title": "T"}))

	upload := func(field, filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/cards/"+card.ID.String()+"/attachments", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+ana)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("file", "notes.txt", "hello")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	att := decode[entities.Attachment](t, rec)
	assert.Equal(t, "notes.txt", att.Filename)
	assert.Equal(t, "http://files.test/"+att.StorageKey, att.URL)

	assert.Equal(t, http.StatusBadRequest, upload("other", "notes.txt", "hello").Code)
	assert.Equal(t, http.StatusBadRequest, upload("file", "tool.exe", "MZ").Code)

	rec = a.do(http.MethodDelete, "/api/attachments/"+att.ID.String(), ana, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	a := newAPI(t)
	userToken, _ := a.register("Ana")
	adminToken, admin := a.register("Root")
	require.NoError(t, a.users.UpdateRole(context.Background(), admin.ID, entities.UserRoleAdmin))

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/admin/users", userToken, nil).Code)

	rec := a.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.AdminUserView](t, rec), 2)

	rec = a.do(http.MethodPost, "/api/admin/departments", adminToken, map[string]string{"name": "Ventas"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(http.MethodPost, "/api/admin/departments", adminToken, map[string]string{"name": "Ventas"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/api/departments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Department](t, rec), 1)

	rec = a.do(http.MethodPatch, "/api/admin/users/"+admin.ID.String()+"/active", adminToken, map[string]bool{"active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPatch, "/api/admin/users/"+admin.ID.String()+"/active", adminToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserSettingsEndpoints(t *testing.T) {
	a := newAPI(t)
	token, _ := a.register("Ana")

	rec := a.do(http.MethodPut, "/api/users/me/teams-webhook", token, map[string]string{"webhookUrl": "https://example.test/hook"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/users/me/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[ports.UserSettings](t, rec)
	assert.False(t, settings.TeamsLinked)
	require.NotNil(t, settings.TeamsWebhook)
	assert.Equal(t, "https://example.test/hook", *settings.TeamsWebhook)

	rec = a.do(http.MethodPut, "/api/users/me/teams-webhook", token, map[string]string{"webhookUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/users/me/teams-link", token, map[string]string{"code": "ABC123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.UserSummary](t, rec), 1)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{entities.ErrCardNotFound, http.StatusNotFound, "card not found"},
		{entities.ErrNoBoardAccess, http.StatusForbidden, "no access to board"},
		{entities.Invalid("title is required"), http.StatusBadRequest, "title is required"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			he, ok := toHTTPError(tt.err).(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.code, he.Code)
			assert.Equal(t, tt.msg, he.Message)
		})
	}
}

type fakeBot struct {
	replies []*botframework.Activity
	err     error
}

func (b *fakeBot) Handle(_ context.Context, act *botframework.Activity) ([]*botframework.Activity, error) {
	return b.replies, b.err
}

type fakeVerifier struct{ err error }

func (v fakeVerifier) Verify(string, *botframework.Activity) error { return v.err }

type fakeReplier struct{ sent []*botframework.Activity }

func (r *fakeReplier) Reply(_ context.Context, act *botframework.Activity) error {
	r.sent = append(r.sent, act)
	return nil
}

func TestBotMessagesEndpoint(t *testing.T) {
	act := &botframework.Activity{Type: botframework.TypeMessage, From: botframework.ChannelAccount{ID: "29:ana"}, Text: "ayuda"}

	postAs := func(h *BotHandler, contentType, body string) *httptest.ResponseRecorder {
		e := echo.New()
		e.HTTPErrorHandler = ErrorHandler(logger.NewNop().Errorw)
		e.POST("/api/messages", h.Messages)
		req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	post := func(h *BotHandler, body string) *httptest.ResponseRecorder {
		return postAs(h, echo.MIMEApplicationJSON, body)
	}
	body, err := json.Marshal(act)
	require.NoError(t, err)

	replier := &fakeReplier{}
	bot := &fakeBot{replies: []*botframework.Activity{act.Reply("hola")}}
	rec := post(NewBotHandler(bot, fakeVerifier{}, replier, logger.NewNop()), string(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, replier.sent, 1)
	assert.Equal(t, "hola", replier.sent[0].Text)

	rec = post(NewBotHandler(bot, fakeVerifier{err: errors.New("bad token")}, replier, logger.NewNop()), string(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(NewBotHandler(bot, nil, replier, logger.NewNop()), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid activity", message(t, rec))

	rec = postAs(NewBotHandler(bot, nil, replier, logger.NewNop()), echo.MIMETextPlain, string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, replier.sent, 1)

	rec = post(NewBotHandler(&fakeBot{err: entities.Invalid("activity has no sender")}, nil, replier, logger.NewNop()), string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, replier.sent, 1)
}
