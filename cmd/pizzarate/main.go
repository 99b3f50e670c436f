package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/abrezinsky/pizzarate/internal/app"
	"github.com/abrezinsky/pizzarate/internal/config"
	"github.com/abrezinsky/pizzarate/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var version = "dev"

func showBanner() {
	logo := []string{
		`   ___  _                         _        `,
		`  / _ \(_)_____ __ _ _ _ __ _ ___| |_ ___  `,
		` |  __/| |_ /_ / _' | '_/ _' |_ _|  _/ -_) `,
		` |_|   |_/__/__\__,_|_| \__,_|   |\__\___| `,
	}
	fmt.Println()
	for _, line := range logo {
		fmt.Printf("  %s%s%s\n", yellow, line, reset)
	}
	fmt.Printf("  %s%s%s\n\n", cyan, version, reset)
}

// cycleLogLevel moves to the next level in debug, info, warn, error order
func cycleLogLevel(appLog *logger.SlogLogger) {
	next := logger.NextLevel(appLog.GetLevel())
	appLog.SetLevel(next)
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// toggleHTTPLogging flips request logging on or off
func toggleHTTPLogging(appLog *logger.SlogLogger) {
	if appLog.IsHTTPLoggingEnabled() {
		appLog.DisableHTTPLogging()
		fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
		return
	}
	appLog.EnableHTTPLogging()
	fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
}

func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %so%s      - Open the web client in a browser\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// applyFlags copies explicitly set command line flags over the loaded config
func applyFlags(cfg *config.Config, port *int, dbPath, logLevel *string) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "db":
			cfg.Database.Path = *dbPath
		case "loglevel":
			cfg.App.LogLevel = *logLevel
		}
	})
}

func initSentry(cfg *config.Config) bool {
	if cfg.App.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.App.SentryDSN,
		Environment:      cfg.App.Environment,
		Release:          "pizzarate@" + version,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		log.Printf("Sentry initialization failed: %v", err)
		return false
	}
	return true
}

func main() {
	port := flag.Int("port", 8081, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "pizzarate.db", "SQLite database path (overrides DB_PATH)")
	logLevel := flag.String("loglevel", "info", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `PizzaRate - pizza tasting events

Usage:
  pizzarate [options]

Configuration is read from .env and the environment (PORT, DB_DRIVER, DB_PATH,
AUTH_MODE, FIREBASE_PROJECT_ID, FIREBASE_CREDENTIALS_PATH, REDIS_URL,
CORS_ORIGINS, BASE_URL, LOG_LEVEL, LOG_FORMAT, SENTRY_DSN, APP_ENV).
Flags given on the command line win.

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("pizzarate %s\n", version)
		os.Exit(0)
	}

	cfg := config.FromEnv()
	if loaded, err := config.Load(); err == nil {
		cfg = loaded
	}
	applyFlags(cfg, port, dbPath, logLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg, !*noKeyboard); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, keyboard bool) error {
	showBanner()

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
	})

	if initSentry(cfg) {
		defer sentry.Flush(2 * time.Second)
		appLog.Info("Sentry error reporting enabled", "environment", cfg.App.Environment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, appLog, cfg)
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		return err
	}
	defer a.Close()

	if keyboard {
		printKeyboardHelp()
		restore := listenForKeyboard(ctx, clientURL(cfg), appLog, stop)
		defer restore()
	} else {
		fmt.Printf("%sKeyboard shortcuts disabled%s\n\n", yellow, reset)
	}

	if err := a.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		appLog.Error("Server stopped", "error", err)
		return err
	}
	return nil
}

// clientURL is where the "o" shortcut points: the first allowed CORS origin
// (the web client), else the API itself
func clientURL(cfg *config.Config) string {
	if len(cfg.Server.CORSOrigins) > 0 && cfg.Server.CORSOrigins[0] != "*" {
		return cfg.Server.CORSOrigins[0]
	}
	return fmt.Sprintf("http://localhost:%d/healthz", cfg.Server.Port)
}
