package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/api"
	"github.com/BTreeMap/InterviewPipe/internal/engine"
	"github.com/BTreeMap/InterviewPipe/internal/lockfile"
	"github.com/BTreeMap/InterviewPipe/internal/renderer"
	"github.com/BTreeMap/InterviewPipe/internal/scheduler"
	"github.com/BTreeMap/InterviewPipe/internal/store"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
	"github.com/BTreeMap/InterviewPipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for InterviewPipe state data
	DefaultStateDir = "/var/lib/interviewpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "interviewpipe.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Guard the state directory against a second instance when using
	// file-backed storage.
	if *flags.dbDriver == "" || *flags.dbDriver == "sqlite3" {
		lock, err := lockfile.AcquireLock(*flags.stateDir)
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cfg, err := templates.Load()
	if err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	r := renderer.New(*flags.openaiKey, renderer.WithTimeout(flags.renderTimeout))
	eng, err := engine.New(cfg, r, st)
	if err != nil {
		slog.Error("Failed to assemble engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep sessions whose budget ran out once a minute.
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob("* * * * *", func() { eng.SweepExpiredSessions(ctx) }); err != nil {
		slog.Error("Failed to schedule budget sweep", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping InterviewPipe",
		"db_driver", *flags.dbDriver, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	srv := api.NewServer(eng, api.WithAddr(*flags.apiAddr))
	if err := srv.Run(ctx); err != nil {
		slog.Error("InterviewPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("InterviewPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
	renderTimeout time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("INTERVIEWPIPE_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("INTERVIEWPIPE_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTERVIEWPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	return config
}

// parseCommandLineFlags parses flags, with environment values as defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "Directory for state data"),
		dbDriver:  flag.String("db-driver", config.DbDriver, "Database driver: sqlite3, postgres, or memory"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "Database connection string"),
		openaiKey: flag.String("openai-key", config.OpenAIKey, "OpenAI API key for question rendering"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API listen address"),
	}
	flag.Parse()
	flags.renderTimeout = util.ParseDurationEnv("RENDER_TIMEOUT", renderer.DefaultTimeout)
	return flags
}

// buildStore selects the storage backend from the configured driver.
// With no driver or DSN configured it falls back to SQLite in the state
// directory; "memory" selects the ephemeral in-memory store.
func buildStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	dsn := *flags.dbDSN

	switch driver {
	case "memory":
		return store.NewInMemoryStore(), nil
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	case "sqlite3", "":
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("No DSN configured, using state-dir SQLite database", "path", dsn)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	default:
		slog.Warn("Unknown db driver, falling back to SQLite", "driver", driver)
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	}
}
