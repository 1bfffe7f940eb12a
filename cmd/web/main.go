package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/velocoach/internal/ai"
	"github.com/myrjola/velocoach/internal/envstruct"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/flightrecorder"
	"github.com/myrjola/velocoach/internal/logging"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/quota"
	"github.com/myrjola/velocoach/internal/sqlite"
	"github.com/myrjola/velocoach/internal/webauthnhandler"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	planService     *plan.Service
	jobs            *plan.Jobs
	quotaGuard      *quota.Guard
	db              *sqlite.Database
	// generationAvailable is false when no AI API key is configured.
	generationAvailable bool
	// flightRecorder is nil when no traces directory is configured.
	flightRecorder         *flightrecorder.Service
	accessSecret           string
	retrievalRequiresLogin bool
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"VELOCOACH_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"VELOCOACH_FQDN" envDefault:"localhost"`
	// FlyAppName is the name of the Fly application. It's used to override the FQDN.
	FlyAppName string `env:"FLY_APP_NAME" envDefault:""`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"VELOCOACH_SQLITE_URL" envDefault:"./velocoach.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"VELOCOACH_TEMPLATE_PATH" envDefault:""`
	// AIAPIKey authenticates against the plan generator. Without it generation reports the service as unavailable.
	AIAPIKey string `env:"VELOCOACH_AI_API_KEY" envDefault:""`
	// AIBaseURL points the client at an OpenAI compatible endpoint. Empty uses the OpenAI API.
	AIBaseURL         string        `env:"VELOCOACH_AI_BASE_URL" envDefault:""`
	AIModel           string        `env:"VELOCOACH_AI_MODEL" envDefault:"gpt-4o-2024-08-06"`
	AIMaxRetries      int           `env:"VELOCOACH_AI_MAX_RETRIES" envDefault:"2"`
	GenerationTimeout time.Duration `env:"VELOCOACH_GENERATION_TIMEOUT" envDefault:"2m"`
	// DailyPlanLimit is the number of plans a single device may generate per calendar day.
	DailyPlanLimit int `env:"VELOCOACH_DAILY_PLAN_LIMIT" envDefault:"100"`
	// AccessSecret enables the invitation gate when set.
	AccessSecret           string `env:"VELOCOACH_ACCESS_SECRET" envDefault:""`
	RetrievalRequiresLogin bool   `env:"VELOCOACH_RETRIEVAL_REQUIRES_LOGIN" envDefault:"false"`
	// PlanStore is either "sqlite" or "s3".
	PlanStore         string `env:"VELOCOACH_PLAN_STORE" envDefault:"sqlite"`
	S3Bucket          string `env:"VELOCOACH_S3_BUCKET" envDefault:""`
	S3Region          string `env:"VELOCOACH_S3_REGION" envDefault:""`
	S3Endpoint        string `env:"VELOCOACH_S3_ENDPOINT" envDefault:""`
	S3AccessKeyID     string `env:"VELOCOACH_S3_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"VELOCOACH_S3_SECRET_ACCESS_KEY" envDefault:""`
	// TracesDirectory enables the flight recorder. Traces of timed out requests are written there.
	TracesDirectory string `env:"VELOCOACH_TRACES_DIRECTORY" envDefault:""`
}

var errUnknownPlanStore = errors.NewSentinel("unknown plan store")

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = uiDir(cfg.TemplatePath, "templates"); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager := initializeSessionManager(db)

	fqdn := cfg.FQDN
	if cfg.FlyAppName != "" {
		fqdn = cfg.FlyAppName + ".fly.dev"
	}
	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(cfg.Addr, fqdn, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	var store plan.Store
	if store, err = newPlanStore(ctx, cfg, db); err != nil {
		return errors.Wrap(err, "new plan store", slog.String("plan_store", cfg.PlanStore))
	}

	aiClient := ai.NewClient(ai.Config{
		APIKey:     cfg.AIAPIKey,
		BaseURL:    cfg.AIBaseURL,
		MaxRetries: cfg.AIMaxRetries,
		Logger:     logger,
		HTTPClient: nil,
	})
	if cfg.AIAPIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "no AI API key configured, plan generation is unavailable")
	}

	var recorder *flightrecorder.Service
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			MinAge:          0,
			MaxBytes:        0,
			MaxTraces:       0,
			TracesDirectory: cfg.TracesDirectory,
			Now:             nil,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	jobs := plan.NewJobs(logger, cfg.GenerationTimeout)
	if recorder != nil {
		jobs.OnTimeout(func(ctx context.Context) {
			recorder.Capture(ctx, flightrecorder.ReasonGenerationTimeout)
		})
	}

	app := application{
		logger:                 logger,
		webAuthnHandler:        webAuthnHandler,
		sessionManager:         sessionManager,
		templateFS:             os.DirFS(htmlTemplatePath),
		planService:            plan.NewService(logger, aiClient, store, cfg.AIModel),
		jobs:                   jobs,
		quotaGuard:             quota.NewGuard(quota.NewSQLiteStore(db), cfg.DailyPlanLimit, time.Now),
		db:                     db,
		generationAvailable:    cfg.AIAPIKey != "",
		flightRecorder:         recorder,
		accessSecret:           cfg.AccessSecret,
		retrievalRequiresLogin: cfg.RetrievalRequiresLogin,
	}

	var handler http.Handler
	if handler, err = app.routes(); err != nil {
		return errors.Wrap(err, "routes")
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

// newPlanStore selects where generated plans are saved.
func newPlanStore(ctx context.Context, cfg config, db *sqlite.Database) (plan.Store, error) {
	switch cfg.PlanStore {
	case "sqlite":
		return plan.NewSQLiteStore(db), nil
	case "s3":
		store, err := plan.NewS3Store(ctx, plan.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			HTTPClient:      nil,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new s3 store", slog.String("bucket", cfg.S3Bucket))
		}
		return store, nil
	default:
		return nil, errUnknownPlanStore
	}
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stdout, nil)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
