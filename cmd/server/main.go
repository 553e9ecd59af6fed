package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/coursehub/coursehub/internal/auth"
	"github.com/coursehub/coursehub/internal/course"
	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/config"
	"github.com/coursehub/coursehub/pkg/email"
	"github.com/coursehub/coursehub/pkg/file"
	"github.com/coursehub/coursehub/pkg/httpserver"
	"github.com/coursehub/coursehub/pkg/logger"
	"github.com/coursehub/coursehub/pkg/mongodb"
	"github.com/coursehub/coursehub/pkg/ratelimit"
	"github.com/coursehub/coursehub/pkg/response"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	AppBaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	RedisURL string `env:"REDIS_URL"`

	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	UploadBaseURL string `env:"UPLOAD_BASE_URL" envDefault:"/uploads"`

	RateLimitGeneral int           `env:"RATE_LIMIT_GENERAL" envDefault:"100"`
	RateLimitAuth    int           `env:"RATE_LIMIT_AUTH" envDefault:"20"`
	RateLimitLogin   int           `env:"RATE_LIMIT_LOGIN" envDefault:"5"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment, "coursehub-api"))
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var mongoCfg mongodb.Config
	config.MustLoad(&mongoCfg)

	client, err := mongodb.Connect(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(shutdownCtx)
	}()

	db := client.Database(mongoCfg.Database)

	users := user.NewMongoRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}
	courses := course.NewMongoRepository(db)
	if err := courses.EnsureIndexes(ctx); err != nil {
		return err
	}

	var tokenCfg auth.TokenConfig
	config.MustLoad(&tokenCfg)
	tokens, err := auth.NewTokenService(tokenCfg)
	if err != nil {
		return err
	}

	mailer, err := newMailer(log)
	if err != nil {
		return err
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	limitStore, closeStore, err := newLimitStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	gate := auth.NewGate(tokens, users, log)
	authHandler := auth.NewHandler(users, tokens, mailer, cfg.AppBaseURL, log)
	userHandler := user.NewHandler(users, storage, func(r *http.Request) (string, bool) {
		identity, ok := auth.IdentityFromContext(r.Context())
		return identity.ID.Hex(), ok
	}, log)
	courseHandler := course.NewHandler(courses, storage, log)

	router, err := buildRouter(cfg, gate, authHandler, userHandler, courseHandler, limitStore)
	if err != nil {
		return err
	}

	srv := httpserver.New(router,
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithLogger(log),
	)
	return srv.Run(ctx)
}

func buildRouter(
	cfg appConfig,
	gate *auth.Gate,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	courseHandler *course.Handler,
	limitStore ratelimit.Store,
) (chi.Router, error) {
	general, err := ratelimit.NewSlidingWindow(limitStore, cfg.RateLimitGeneral, cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}
	authLimit, err := ratelimit.NewSlidingWindow(limitStore, cfg.RateLimitAuth, cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}
	loginLimit, err := ratelimit.NewSlidingWindow(limitStore, cfg.RateLimitLogin, cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(ratelimit.Middleware(general, ratelimit.ByClientIP))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		response.OK(w, "ok", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(ratelimit.Middleware(authLimit, ratelimit.ByClientIP))
			r.Mount("/", authHandler.Routes(gate, ratelimit.Middleware(loginLimit, ratelimit.ByClientIP)))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.Mount("/", userHandler.Routes())
		})

		r.Mount("/courses", courseHandler.Routes(gate))
	})

	// Serve local uploads when not using object storage.
	if cfg.UploadBaseURL != "" && cfg.UploadDir != "" {
		fs := http.StripPrefix(cfg.UploadBaseURL, http.FileServer(http.Dir(cfg.UploadDir)))
		r.Handle(cfg.UploadBaseURL+"/*", fs)
	}

	return r, nil
}

// newMailer prefers Postmark when a server token is configured, falling
// back to the file-based dev sender.
func newMailer(log *slog.Logger) (email.Sender, error) {
	var cfg email.Config
	config.MustLoad(&cfg)

	if cfg.PostmarkServerToken != "" {
		return email.NewPostmarkSender(cfg)
	}
	log.Warn("no postmark token configured, writing emails to files",
		slog.String("dir", cfg.DevOutputDir))
	return email.NewDevSender(cfg.DevOutputDir, log)
}

// newStorage prefers S3 when a bucket is configured, falling back to
// local disk.
func newStorage(ctx context.Context, cfg appConfig) (file.Storage, error) {
	var s3Cfg file.S3Config
	config.MustLoad(&s3Cfg)

	if s3Cfg.Bucket != "" {
		return file.NewS3Storage(ctx, s3Cfg)
	}
	return file.NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL)
}

// newLimitStore uses Redis when configured so limits are shared across
// instances, otherwise an in-process store.
func newLimitStore(ctx context.Context, cfg appConfig, log *slog.Logger) (ratelimit.Store, func(), error) {
	if cfg.RedisURL == "" {
		store := ratelimit.NewMemoryStore()
		return store, func() { store.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, err
	}

	log.Info("rate limiting backed by redis")
	store, err := ratelimit.NewRedisStore(client, "coursehub:ratelimit")
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}
