package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/leadpilot/icpflow/internal/api"
	"github.com/leadpilot/icpflow/internal/genai"
	"github.com/leadpilot/icpflow/internal/store"
	"github.com/leadpilot/icpflow/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for icpflow state data
	DefaultStateDir = "/var/lib/icpflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "icpflow.db"
)

func main() {
	loadDotEnv()
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping icpflow with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("icpflow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("icpflow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	OpenAIModel string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	openaiKey   *string
	openaiModel *string
	apiAddr     *string
}

// loadDotEnv merges a .env file into the process environment before the
// logger and configuration read it.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
}

// initializeLogger sets up structured logging; ICPFLOW_DEBUG enables debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("ICPFLOW_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables
func loadEnvironmentConfig() Config {
	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("ICPFLOW_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ICPFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ICPFLOW_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for icpflow data (overrides $ICPFLOW_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the conversation store (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
