package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"helpfinder/internal/authz"
	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/notify"
	"helpfinder/internal/repositories"
	"helpfinder/internal/utils"
)

const TelegramLinkTTL = 15 * time.Minute

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string, roleID int) (token string, expiresAt time.Time, err error)
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (*models.User, error)
	SetRole(ctx context.Context, id string, roleID int) (*models.User, error)
	PromoteByEmail(ctx context.Context, email string) (*models.User, error)
	CreateTelegramLink(ctx context.Context, userID string) (*repositories.TelegramLink, error)
	ConsumeTelegramLink(ctx context.Context, code string, chatID int64) (*models.User, error)
}

type userService struct {
	*engine
	tokens TokenIssuer
}

func NewUserService(d Deps, tokens TokenIssuer) UserService {
	return &userService{engine: newEngine(d), tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		return nil, validation("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           models.NewID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       authz.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		fx.Add(notify.EmailOnly(user.ID, "", "Welcome to HelpFinder",
			notify.HTML("Welcome, "+user.Name, "Your account is ready. Post a task or start bidding on tasks near you.")))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[user][register] user registered", logger.UserID(user.ID))
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}

	token, exp, err := s.tokens.Issue(user.ID, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("[user][login] user logged in", logger.UserID(user.ID))
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Users().List(ctx, limit, offset)
}

// SetBlocked toggles the admin block flag. Lifecycle rows are untouched;
// a blocked user simply cannot log in or use an existing token.
func (s *userService) SetBlocked(ctx context.Context, id string, blocked bool) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, func(tx repositories.Store, _ *notify.Effects) error {
		u, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		u.Blocked = blocked
		u.UpdatedAt = s.now().UTC()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[user][block] block flag changed", logger.UserID(id), zap.Bool("blocked", blocked))
	return user, nil
}

// SetRole changes a user's role. The new role applies to the user's next
// request since the auth middleware reads it from the store.
func (s *userService) SetRole(ctx context.Context, id string, roleID int) (*models.User, error) {
	if !authz.Valid(roleID) {
		return nil, validation("unknown role %d", roleID)
	}
	return s.changeRole(ctx, roleID, func(tx repositories.Store) (*models.User, error) {
		u, err := tx.Users().GetByID(ctx, id)
		return u, notFoundAs(err, ErrUserNotFound)
	})
}

// PromoteByEmail makes the user with the given email an admin. It is how
// the first admin of a fresh database is created.
func (s *userService) PromoteByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, validation("email is required")
	}
	return s.changeRole(ctx, authz.RoleAdmin, func(tx repositories.Store) (*models.User, error) {
		u, err := tx.Users().GetByEmail(ctx, email)
		return u, notFoundAs(err, ErrUserNotFound)
	})
}

func (s *userService) changeRole(ctx context.Context, roleID int, load func(tx repositories.Store) (*models.User, error)) (*models.User, error) {
	var (
		user *models.User
		from int
	)
	err := s.run(ctx, func(tx repositories.Store, _ *notify.Effects) error {
		u, err := load(tx)
		if err != nil {
			return err
		}
		from = u.RoleID
		if u.RoleID == roleID {
			user = u
			return nil
		}
		u.RoleID = roleID
		u.UpdatedAt = s.now().UTC()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[user][role] role changed", logger.UserID(user.ID), zap.Int("from", from), zap.Int("to", roleID))
	return user, nil
}

// CreateTelegramLink issues a one-time code the user sends to the bot as
// "/start <code>".
func (s *userService) CreateTelegramLink(ctx context.Context, userID string) (*repositories.TelegramLink, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	code, err := utils.NewToken(8)
	if err != nil {
		return nil, fmt.Errorf("generate link code: %w", err)
	}
	now := s.now().UTC()
	link := &repositories.TelegramLink{
		Code:      code,
		UserID:    userID,
		ExpiresAt: now.Add(TelegramLinkTTL),
		CreatedAt: now,
	}
	if err := s.store.TelegramLinks().Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *userService) ConsumeTelegramLink(ctx context.Context, code string, chatID int64) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, func(tx repositories.Store, fx *notify.Effects) error {
		link, err := tx.TelegramLinks().GetByCode(ctx, strings.TrimSpace(code))
		if err != nil {
			return notFoundAs(err, ErrInvalidLinkCode)
		}
		now := s.now().UTC()
		if link.Used || now.After(link.ExpiresAt) {
			return ErrInvalidLinkCode
		}
		u, err := tx.Users().GetByID(ctx, link.UserID)
		if err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		u.TelegramChatID = &chatID
		u.UpdatedAt = now
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		if err := tx.TelegramLinks().MarkUsed(ctx, link.Code); err != nil {
			return err
		}
		fx.Add(notify.Notice(u.ID, models.NotifySuccess, "", "Telegram notifications are now enabled."))
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[user][telegram] chat linked", logger.UserID(user.ID), zap.Int64("chat_id", chatID))
	return user, nil
}
