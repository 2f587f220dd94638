package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpfinder/internal/authz"
	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/repositories/sqlitedb"
)

type sentMail struct{ to, subject string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fakeMessenger struct {
	mu    sync.Mutex
	chats []int64
}

func (f *fakeMessenger) Send(chatID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	return nil
}

func setup(t *testing.T) (*sqlitedb.Store, *models.User) {
	t.Helper()
	store, err := sqlitedb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chat := int64(777)
	u := &models.User{
		ID: uuid.NewString(), Email: "helper@example.com", PasswordHash: "x",
		RoleID: authz.RoleMember, TelegramChatID: &chat, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return store, u
}

func TestHub_DeliversAllChannels(t *testing.T) {
	store, u := setup(t)
	mailer := &fakeMailer{}
	messenger := &fakeMessenger{}
	hub := NewHub(store, mailer, messenger, 2, 8, logger.Nop())

	hub.Dispatch(context.Background(), []Effect{
		Notice(u.ID, models.NotifySuccess, "task-1", "Your bid was accepted").
			WithEmail("Bid accepted", HTML("Bid accepted", "Good news")),
		EmailOnly(u.ID, "task-1", "New bid", HTML("New bid")),
	})
	hub.Close()

	list, err := store.Notifications().ListForUser(context.Background(), u.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifySuccess, list[0].Type)
	assert.Equal(t, "task-1", list[0].ResourceID)

	assert.ElementsMatch(t, []sentMail{
		{"helper@example.com", "Bid accepted"},
		{"helper@example.com", "New bid"},
	}, mailer.Sent())
	assert.Equal(t, []int64{777}, messenger.chats)
}

func TestHub_FailuresAreSwallowed(t *testing.T) {
	store, u := setup(t)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	hub := NewHub(store, mailer, nil, 1, 1, logger.Nop())

	assert.NotPanics(t, func() {
		hub.Dispatch(context.Background(), []Effect{
			Notice("unknown-user", models.NotifyInfo, "", "nobody").WithEmail("s", "b"),
			Notice(u.ID, models.NotifyInfo, "", "hello").WithEmail("s", "b"),
		})
	})
	hub.Close()

	list, err := store.Notifications().ListForUser(context.Background(), u.ID, true, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHub_DispatchAfterClose(t *testing.T) {
	store, u := setup(t)
	mailer := &fakeMailer{}
	hub := NewHub(store, mailer, nil, 1, 1, logger.Nop())
	hub.Close()
	hub.Close()

	hub.Dispatch(context.Background(), []Effect{EmailOnly(u.ID, "", "late", "b")})
	assert.Empty(t, mailer.Sent())
}

func TestHTML_Escapes(t *testing.T) {
	body := HTML("<b>Title</b>", "a & b")
	assert.Contains(t, body, "&lt;b&gt;Title&lt;/b&gt;")
	assert.Contains(t, body, "a &amp; b")
}
