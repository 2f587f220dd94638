package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpfinder/internal/authz"
	"helpfinder/internal/models"
)

type fakeTokens struct{}

func (fakeTokens) Issue(userID string, roleID int) (string, time.Time, error) {
	return "token-" + userID, time.Unix(0, 0), nil
}

func TestUsers_RegisterAndLogin(t *testing.T) {
	env := newEnv(t)
	users := NewUserService(env.deps, fakeTokens{})

	u, err := users.Register(env.ctx, models.RegisterRequest{Name: "Nina", Email: " Nina@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "nina@example.com", u.Email)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	welcome := env.sent.For(u.ID)
	require.Len(t, welcome, 1)
	assert.Empty(t, welcome[0].Message)

	_, err = users.Register(env.ctx, models.RegisterRequest{Name: "N2", Email: "nina@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	session, err := users.Login(env.ctx, "NINA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "token-"+u.ID, session.Token)

	_, err = users.Login(env.ctx, "nina@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = users.Login(env.ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = users.SetBlocked(env.ctx, u.ID, true)
	require.NoError(t, err)
	_, err = users.Login(env.ctx, "nina@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUserBlocked)

	_, err = users.SetBlocked(env.ctx, "missing", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_TelegramLink(t *testing.T) {
	env := newEnv(t)
	users := NewUserService(env.deps, fakeTokens{})

	link, err := users.CreateTelegramLink(env.ctx, env.h1.ID)
	require.NoError(t, err)
	assert.Len(t, link.Code, 16)

	u, err := users.ConsumeTelegramLink(env.ctx, link.Code, 4242)
	require.NoError(t, err)
	require.NotNil(t, u.TelegramChatID)
	assert.Equal(t, int64(4242), *u.TelegramChatID)

	_, err = users.ConsumeTelegramLink(env.ctx, link.Code, 4242)
	assert.ErrorIs(t, err, ErrInvalidLinkCode)

	expired, err := users.CreateTelegramLink(env.ctx, env.h2.ID)
	require.NoError(t, err)
	env.clock.Advance(TelegramLinkTTL + time.Second)
	_, err = users.ConsumeTelegramLink(env.ctx, expired.Code, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = users.ConsumeTelegramLink(env.ctx, "nope", 1)
	assert.ErrorIs(t, err, ErrInvalidLinkCode)
}

func TestUsers_SetRole(t *testing.T) {
	env := newEnv(t)
	users := NewUserService(env.deps, fakeTokens{})

	u, err := users.SetRole(env.ctx, env.h1.ID, authz.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, u.RoleID)

	stored, err := env.store.Users().GetByID(env.ctx, env.h1.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, stored.RoleID)

	u, err = users.SetRole(env.ctx, env.h1.ID, authz.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleMember, u.RoleID)

	_, err = users.SetRole(env.ctx, env.h1.ID, 30)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = users.SetRole(env.ctx, "missing", authz.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_PromoteByEmail(t *testing.T) {
	env := newEnv(t)
	users := NewUserService(env.deps, fakeTokens{})

	reg, err := users.Register(env.ctx, models.RegisterRequest{Name: "Owner", Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleMember, reg.RoleID)

	u, err := users.PromoteByEmail(env.ctx, "  OWNER@example.com ")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)
	assert.Equal(t, authz.RoleAdmin, u.RoleID)

	// already an admin
	u, err = users.PromoteByEmail(env.ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, u.RoleID)

	session, err := users.Login(env.ctx, "owner@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, session.User.RoleID)

	_, err = users.PromoteByEmail(env.ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.PromoteByEmail(env.ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)
}
