package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpfinder/internal/authz"
	"helpfinder/internal/handlers"
	"helpfinder/internal/logger"
	"helpfinder/internal/middleware"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories/sqlitedb"
	"helpfinder/internal/routes"
	"helpfinder/internal/services"
)

type discard struct{}

func (discard) Dispatch(context.Context, []notify.Effect) {}

type fakeBot struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (b *fakeBot) Send(chatID int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = map[int64][]string{}
	}
	b.sent[chatID] = append(b.sent[chatID], text)
	return nil
}

func (b *fakeBot) last(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.sent[chatID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type api struct {
	t     *testing.T
	r     *gin.Engine
	store *sqlitedb.Store
	jwt   *middleware.JWT
	bot   *fakeBot
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handlers.RegisterValidators())

	store, err := sqlitedb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logger.Nop()
	deps := services.Deps{
		Store:      store,
		Dispatcher: discard{},
		Limits:     services.Limits{TasksPerDay: 2, BidsPerDay: 50},
		Log:        log,
	}
	jwt := middleware.NewJWT("test-secret", time.Hour)
	bot := &fakeBot{}
	users := services.NewUserService(deps, jwt)

	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(users, "helpfinder_bot", log),
		Tasks:         handlers.NewTaskHandler(services.NewTaskService(deps), store, log),
		Bids:          handlers.NewBidHandler(services.NewBidService(deps), log),
		Contracts:     handlers.NewContractHandler(services.NewContractService(deps, nil), log),
		Notifications: handlers.NewNotificationHandler(services.NewNotificationService(deps), log),
		Reviews:       handlers.NewReviewHandler(services.NewReviewService(deps), log),
		Chat:          handlers.NewChatHandler(services.NewChatService(deps), log),
		Users:         handlers.NewUserHandler(users, log),
		Integrations:  handlers.NewIntegrationsHandler(users, bot, log),
	}
	lookup := func(c *gin.Context, userID string) (middleware.Account, error) {
		u, err := store.Users().GetByID(c.Request.Context(), userID)
		if err != nil {
			return middleware.Account{}, err
		}
		return middleware.Account{RoleID: u.RoleID, Blocked: u.Blocked}, nil
	}

	r := gin.New()
	routes.SetupRoutes(r, h, middleware.AuthMiddleware(jwt, lookup), nil)
	return &api{t: t, r: r, store: store, jwt: jwt, bot: bot}
}

// member stores a user directly and returns a bearer token for it.
func (a *api) member(name string, role int) (*models.User, string) {
	a.t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		RoleID:       role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(a.t, a.store.Users().Create(context.Background(), u))
	token, _, err := a.jwt.Issue(u.ID, role)
	require.NoError(a.t, err)
	return u, token
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestAuthRegisterLoginMe(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "Rita", "email": "Rita@Example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "rita@example.com", decode[models.User](t, w).Email)

	w = a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "Rita", "email": "rita@example.com", "password": "secret-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "Rita", "email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "rita@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "rita@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[services.Session](t, w)
	require.NotEmpty(t, session.Token)

	w = a.do(http.MethodGet, "/api/v1/me", session.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.User.ID, decode[models.User](t, w).ID)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/me", "garbage", nil).Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	_, rita := a.member("rita", authz.RoleMember)
	hank, hankToken := a.member("hank", authz.RoleMember)
	_, admin := a.member("ada", authz.RoleAdmin)

	w := a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": "Assemble shelf", "budget_min": 20, "budget_max": 60})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)
	assert.Equal(t, models.TaskOpen, task.Status)

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/bids", hankToken, gin.H{"amount": "30", "message": "tomorrow works"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bid := decode[models.Bid](t, w)

	w = a.do(http.MethodPost, "/api/v1/bids/"+bid.ID+"/accept", hankToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/v1/bids/"+bid.ID+"/accept", rita, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	contract := decode[models.Contract](t, w)
	assert.Equal(t, models.ContractPending, contract.Status)
	assert.Equal(t, hank.ID, contract.HelperID)
	assert.Equal(t, "30", contract.AgreedAmount.String())

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/approve-completion", rita, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, step := range []struct {
		path  string
		token string
		want  models.TaskStatus
	}{
		{"start", hankToken, models.TaskInProgress},
		{"request-completion", hankToken, models.TaskReviewPending},
		{"approve-completion", rita, models.TaskCompleted},
	} {
		w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/"+step.path, step.token, nil)
		require.Equal(t, http.StatusOK, w.Code, step.path+": "+w.Body.String())
		assert.Equal(t, step.want, decode[models.Task](t, w).Status)
	}

	w = a.do(http.MethodGet, "/api/v1/contracts/"+contract.ID, hankToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ContractApproved, decode[models.Contract](t, w).Status)

	w = a.do(http.MethodGet, "/api/v1/contracts/"+contract.ID+"/pdf", rita, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = a.do(http.MethodGet, "/api/v1/admin/tasks/"+task.ID+"/consistency", rita, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/v1/admin/tasks/"+task.ID+"/consistency", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["consistent"])
}

func TestErrorResponses(t *testing.T) {
	a := newAPI(t)
	_, rita := a.member("rita", authz.RoleMember)
	_, hank := a.member("hank", authz.RoleMember)

	w := a.do(http.MethodGet, "/api/v1/tasks/"+uuid.NewString(), rita, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.ErrTaskNotFound.Error(), errorOf(t, w))

	w = a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": "Paint fence", "budget_min": 80, "budget_max": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": "Paint fence"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/bids", rita, gin.H{"amount": "25"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, services.ErrOwnTask.Error(), errorOf(t, w))

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/bids", hank, gin.H{"amount": "0.5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/tasks?status=bogus", rita, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": "Mow lawn"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodPost, "/api/v1/tasks", rita, gin.H{"title": "Wash car"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, services.ErrTaskQuota.Error(), errorOf(t, w))

	w = a.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, hank, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, rita, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, rita, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBlockedUserIsRefused(t *testing.T) {
	a := newAPI(t)
	admin, adminToken := a.member("ada", authz.RoleAdmin)
	hank, hankToken := a.member("hank", authz.RoleMember)

	w := a.do(http.MethodGet, "/api/v1/admin/users", hankToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/v1/admin/users/"+admin.ID+"/block", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/admin/users/"+hank.ID+"/block", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.User](t, w).Blocked)

	w = a.do(http.MethodGet, "/api/v1/me", hankToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/v1/admin/users/"+hank.ID+"/unblock", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/me", hankToken, nil).Code)
}

func telegramUpdate(chatID int64, text string) gin.H {
	msg := gin.H{
		"message_id": 1,
		"date":       time.Now().Unix(),
		"chat":       gin.H{"id": chatID, "type": "private"},
		"text":       text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg["entities"] = []gin.H{{"type": "bot_command", "offset": 0, "length": len(cmd)}}
	}
	return gin.H{"update_id": 1, "message": msg}
}

func TestTelegramWebhookLinksChat(t *testing.T) {
	a := newAPI(t)
	_, rita := a.member("rita", authz.RoleMember)
	const chatID = int64(4242)

	w := a.do(http.MethodPut, "/api/v1/me/telegram", rita, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	link := decode[map[string]string](t, w)
	code := link["code"]
	require.Len(t, code, 16)
	assert.Equal(t, "/link "+code, link["command"])
	assert.Equal(t, "https://t.me/helpfinder_bot?start="+code, link["deep_link"])

	w = a.do(http.MethodPost, "/integrations/telegram/webhook", "", telegramUpdate(chatID, "/link 0000000000000000"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, a.bot.last(chatID), "invalid or expired")

	w = a.do(http.MethodPost, "/integrations/telegram/webhook", "", telegramUpdate(chatID, "hello"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, a.bot.last(chatID), "Unknown command")

	w = a.do(http.MethodPost, "/integrations/telegram/webhook", "", telegramUpdate(chatID, fmt.Sprintf("/link %s", code)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, a.bot.last(chatID), "rita@example.com")

	w = a.do(http.MethodGet, "/api/v1/me", rita, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	require.NotNil(t, me.TelegramChatID)
	assert.Equal(t, chatID, *me.TelegramChatID)

	w = a.do(http.MethodPost, "/integrations/telegram/webhook", "", telegramUpdate(chatID, "/start "+code))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, a.bot.last(chatID), "invalid or expired")

	w = a.do(http.MethodPost, "/integrations/telegram/webhook", "", gin.H{"update_id": 2})
	assert.Equal(t, http.StatusOK, w.Code)
}
