package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	_ "helpfinder/docs"
	"helpfinder/internal/config"
	"helpfinder/internal/handlers"
	"helpfinder/internal/middleware"
	"helpfinder/internal/notify"
	"helpfinder/internal/pdf"
	"helpfinder/internal/quota"
	"helpfinder/internal/repositories"
	"helpfinder/internal/repositories/pgdb"
	"helpfinder/internal/repositories/sqlitedb"
	"helpfinder/internal/routes"
	"helpfinder/internal/services"
)

// App owns every long-lived resource of the API process.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	store  repositories.Store
	redis  rueidis.Client
	hub    *notify.Hub
	router *gin.Engine
}

// OpenStore opens the configured database. Postgres is migrated only when
// auto_migrate is set; SQLite always migrates on open.
func OpenStore(cfg *config.Config, log *zap.Logger) (repositories.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			applied, err := pgdb.MigrateUp(cfg.Database.DSN)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("[db] migrations", zap.Bool("applied", applied))
		}
		store, err := pgdb.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlitedb.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, store: store}

	var gate quota.Gate = quota.NewStoreGate()
	if cfg.Quota.Backend == config.QuotaBackendRedis {
		client, err := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{cfg.Redis.Addr}})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client
		gate = quota.NewRedisGate(client)
	}

	var mailer notify.Mailer
	if cfg.Email.DryRun {
		mailer = notify.NewLogMailer(log)
	} else {
		mailer = notify.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.FromEmail)
	}

	var (
		bot       *notify.TelegramBot
		messenger notify.Messenger
	)
	if cfg.Telegram.BotToken != "" {
		bot, err = notify.NewTelegramBot(cfg.Telegram.BotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		messenger = bot
		if cfg.Telegram.WebhookURL != "" {
			if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
				log.Warn("[telegram] set webhook failed", zap.Error(err))
			}
		}
	}

	a.hub = notify.NewHub(store, mailer, messenger, cfg.Notify.Workers, cfg.Notify.QueueSize, log)

	deps := services.Deps{
		Store:      store,
		Dispatcher: a.hub,
		Gate:       gate,
		Limits:     services.Limits{TasksPerDay: cfg.Quota.TasksPerDay, BidsPerDay: cfg.Quota.BidsPerDay},
		Location:   loc,
		Log:        log,
	}
	jwt := middleware.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	taskService := services.NewTaskService(deps)
	bidService := services.NewBidService(deps)
	contractService := services.NewContractService(deps, pdf.NewDocumentGenerator(cfg.PDF.FontPath))
	userService := services.NewUserService(deps, jwt)
	notificationService := services.NewNotificationService(deps)
	reviewService := services.NewReviewService(deps)
	chatService := services.NewChatService(deps)

	if err := handlers.RegisterValidators(); err != nil {
		a.Close()
		return nil, err
	}

	botName := ""
	h := routes.Handlers{
		Tasks:         handlers.NewTaskHandler(taskService, store, log),
		Bids:          handlers.NewBidHandler(bidService, log),
		Contracts:     handlers.NewContractHandler(contractService, log),
		Notifications: handlers.NewNotificationHandler(notificationService, log),
		Reviews:       handlers.NewReviewHandler(reviewService, log),
		Chat:          handlers.NewChatHandler(chatService, log),
		Users:         handlers.NewUserHandler(userService, log),
	}
	if bot != nil {
		botName = bot.Username()
		h.Integrations = handlers.NewIntegrationsHandler(userService, bot, log)
	}
	h.Auth = handlers.NewAuthHandler(userService, botName, log)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.SetupRoutes(r, h, middleware.AuthMiddleware(jwt, accountLookup(store)), func(c *gin.Context) error {
		return store.Ping(c.Request.Context())
	})
	a.router = r

	return a, nil
}

func accountLookup(store repositories.Store) middleware.AccountLookup {
	return func(c *gin.Context, userID string) (middleware.Account, error) {
		u, err := store.Users().GetByID(c.Request.Context(), userID)
		if err != nil {
			return middleware.Account{}, err
		}
		return middleware.Account{RoleID: u.RoleID, Blocked: u.Blocked}, nil
	}
}

func (a *App) Router() *gin.Engine { return a.router }

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("[http] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("[http] shutdown", zap.Error(err))
	}
	a.log.Info("[http] stopped")
	return nil
}

// Close flushes queued deliveries and releases connections.
func (a *App) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("[db] close", zap.Error(err))
		}
	}
}
