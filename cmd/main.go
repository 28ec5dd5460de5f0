// Instagram Automation Tool - Educational Purpose Only
// This tool demonstrates browser automation techniques and anti-detection patterns.
// DO NOT use this on live Instagram accounts - it violates their Terms of Use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/config"
	"instagram-automation/internal/coordinator"
	"instagram-automation/internal/engine"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/analytics"
	"instagram-automation/internal/instagram/api"
	"instagram-automation/internal/intercept"
	"instagram-automation/internal/models"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Version info
const (
	AppName    = "instagram-automation"
	AppVersion = "1.0.0"
)

// Command line flags
var (
	configPath = flag.String("config", "./config/config.yaml", "Path to config file")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	headless   = flag.Bool("headless", false, "Run in headless mode")
)

// App holds all application dependencies
type App struct {
	config         *config.Config
	logger         zerolog.Logger
	store          *store.Store
	browser        *browser.Browser
	sessionManager *browser.SessionManager
	stealth        *stealth.Controller
	interceptor    *intercept.Interceptor
	engine         *engine.Engine
	apiClient      *api.Client
	coordinator    *coordinator.Coordinator
}

func main() {
	flag.Parse()

	printBanner()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]

	app, err := NewApp()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Cleanup()

	var cmdErr error
	switch command {
	case "login":
		cmdErr = app.cmdLogin()
	case "run":
		cmdErr = app.cmdRun()
	case "audit":
		cmdErr = app.cmdAudit(args[1:])
	case "serve":
		cmdErr = app.cmdServe()
	case "status":
		cmdErr = app.cmdStatus()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		app.logger.Error().Err(cmdErr).Msg("Command failed")
		os.Exit(1)
	}
}

// NewApp creates and initializes the application
func NewApp() (*App, error) {
	app := &App{}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.config = cfg

	// Override with command line flags
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *headless {
		cfg.Browser.Headless = true
	}

	app.setupLogging()
	app.logger.Info().Str("version", AppVersion).Msg("Starting application")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app.store = st

	// The stealth controller reads its pacing straight from the store,
	// so dashboard edits take effect without a restart.
	delays := func() models.DelayConfig {
		d, err := st.Delays()
		if err != nil {
			return models.DefaultDelays()
		}
		return d
	}
	app.stealth = stealth.NewController(&cfg.Stealth, delays, app.logger)

	app.sessionManager = browser.NewSessionManager(cfg.Storage.CookiesPath, app.logger)
	app.apiClient = api.NewClient(app.sessionManager, st, app.logger)
	app.coordinator = coordinator.New(st, app.apiClient, cfg, app.logger)

	app.logger.Info().Msg("Application initialized")
	return app, nil
}

// initBrowser initializes the browser (lazy initialization)
func (app *App) initBrowser() error {
	if app.browser != nil {
		return nil
	}

	app.logger.Info().Msg("Initializing browser")

	b, err := browser.NewBrowser(&app.config.Browser, app.stealth, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	app.browser = b

	if err := app.sessionManager.LoadCookies(b.Browser()); err != nil {
		app.logger.Warn().Err(err).Msg("Failed to load saved cookies")
	}

	app.interceptor = intercept.New(app.logger)
	app.engine = engine.New(b, app.store, app.stealth, app.interceptor, app.logger)

	return nil
}

// setupLogging configures the logger
func (app *App) setupLogging() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	level := zerolog.InfoLevel
	switch app.config.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	app.logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = app.logger
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	app.logger.Info().Msg("Cleaning up resources")

	if app.browser != nil {
		app.sessionManager.SaveCookies(app.browser.Browser())
		app.browser.Close()
	}

	if app.store != nil {
		app.store.Close()
	}
}

// cmdLogin opens a visible browser for a manual login and saves the
// session cookies once the login form is gone.
func (app *App) cmdLogin() error {
	app.logger.Info().Msg("=== Login Command ===")

	// Manual login needs a window to type into.
	app.config.Browser.Headless = false

	if err := app.initBrowser(); err != nil {
		return err
	}

	page, err := app.browser.GetPage()
	if err != nil {
		return err
	}

	if err := app.browser.Navigate(page, instagram.HomeURL()); err != nil {
		return err
	}

	helper := browser.NewPageHelper(app.logger)
	if !helper.ElementExists(page, "input[name='username']") {
		app.logger.Info().Msg("Already logged in, saving session")
		return app.sessionManager.SaveCookies(app.browser.Browser())
	}

	fmt.Println("\nPlease log in to Instagram in the browser window.")
	fmt.Println("Waiting up to 5 minutes for the login form to clear...")

	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		time.Sleep(3 * time.Second)
		if !helper.ElementExists(page, "input[name='username']") {
			app.logger.Info().Msg("Login detected, saving session")
			return app.sessionManager.SaveCookies(app.browser.Browser())
		}
	}

	return fmt.Errorf("login not completed within 5 minutes")
}

// cmdRun starts the engagement engine plus the dashboard and refresh
// loops, and blocks until interrupted.
func (app *App) cmdRun() error {
	app.logger.Info().Msg("=== Run Command ===")

	if err := app.config.ValidateForRun(); err != nil {
		return err
	}

	if err := app.coordinator.EnsureDefaults(); err != nil {
		return fmt.Errorf("failed to seed state: %w", err)
	}

	if err := app.initBrowser(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.engine.Run(gctx)
	})

	if app.config.Server.Enabled {
		srv := coordinator.NewServer(app.config.Server.Addr, app.store, app.logger)
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	if app.config.Refresh.Enabled {
		g.Go(func() error {
			return app.coordinator.RunRefresh(gctx)
		})
	}

	err := g.Wait()
	if err == context.Canceled {
		app.logger.Info().Msg("Shutdown complete")
		return nil
	}
	return err
}

// cmdAudit performs a one-shot deep audit of a single profile
func (app *App) cmdAudit(args []string) error {
	app.logger.Info().Msg("=== Audit Command ===")

	if len(args) == 0 {
		return fmt.Errorf("usage: %s audit <username>", AppName)
	}
	username := instagram.CleanHandle(args[0])
	if username == "" {
		return fmt.Errorf("invalid username: %q", args[0])
	}

	if err := app.initBrowser(); err != nil {
		return err
	}

	page, err := app.browser.GetPage()
	if err != nil {
		return err
	}

	detach := app.interceptor.Attach(page)
	defer detach()

	result, err := app.engine.Analytics().Audit(page, username, analytics.ModeDeep, false)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	fmt.Printf("\n========== Audit: @%s ==========\n", result.Username)
	fmt.Printf("  Full name:       %s\n", result.FullName)
	fmt.Printf("  Verified:        %v\n", result.Verified)
	fmt.Printf("  Posts:           %d\n", result.Stats.Posts)
	fmt.Printf("  Followers:       %d\n", result.Stats.Followers)
	fmt.Printf("  Following:       %d\n", result.Stats.Following)
	fmt.Printf("  Engagement rate: %.2f%%\n", result.EngagementRate)
	fmt.Printf("  Trust score:     %d / 100\n", result.TrustScore)
	fmt.Printf("  Posts captured:  %d\n", len(result.LatestPosts))
	fmt.Println("==================================")

	return nil
}

// cmdServe runs just the dashboard API, no browser
func (app *App) cmdServe() error {
	app.logger.Info().Msg("=== Serve Command ===")

	if err := app.coordinator.EnsureDefaults(); err != nil {
		return fmt.Errorf("failed to seed state: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := coordinator.NewServer(app.config.Server.Addr, app.store, app.logger)
	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// cmdStatus prints current statistics and session state
func (app *App) cmdStatus() error {
	fmt.Println("\n========== Status ==========")

	stats, _ := app.store.Stats()
	fmt.Printf("\nLifetime Activity:\n")
	fmt.Printf("  Likes:     %d\n", stats.Likes)
	fmt.Printf("  Follows:   %d\n", stats.Follows)
	fmt.Printf("  Unfollows: %d\n", stats.Unfollows)

	running, _ := app.store.IsRunning()
	fmt.Printf("\nEngine:\n")
	fmt.Printf("  Running: %v\n", running)

	var username string
	if _, err := app.store.Get(store.KeyLastKnownUsername, &username); err == nil && username != "" {
		fmt.Printf("  Account: @%s\n", username)
		if result, err := app.apiClient.Refresh(username, true); err == nil {
			fmt.Printf("  Followers: %d\n", result.Stats.Followers)
			fmt.Printf("  Following: %d\n", result.Stats.Following)
		}
	}

	growth, _ := app.store.GrowthStat()
	fmt.Printf("  Follower growth (7d): %+d\n", growth)

	fmt.Printf("\nSession:\n")
	if app.sessionManager.HasSavedSession() {
		age, _ := app.sessionManager.GetSessionAge()
		fmt.Printf("  Saved session: %s ago\n", age.Round(time.Minute))
		fmt.Printf("  Valid: %v\n", app.sessionManager.IsSessionValid())
	} else {
		fmt.Printf("  No saved session\n")
	}

	fmt.Println("\n============================")
	return nil
}

// printBanner prints the application banner
func printBanner() {
	fmt.Println(`
╔═══════════════════════════════════════════════════════════════╗
║          Instagram Automation Tool - v` + AppVersion + `                  ║
║                                                               ║
║  ⚠️  EDUCATIONAL PURPOSE ONLY - DO NOT USE IN PRODUCTION  ⚠️  ║
║                                                               ║
║  This tool violates Instagram's Terms of Use.                 ║
║  Using it on real accounts may result in permanent bans.      ║
╚═══════════════════════════════════════════════════════════════╝
`)
}

// printUsage prints usage information
func printUsage() {
	fmt.Println(`
Usage: instagram-automation [options] <command>

Commands:
  login     Open a browser for manual login and save the session
  run       Start the engagement engine with dashboard and refresh loops
  audit     Deep-audit a single profile (audit <username>)
  serve     Run only the dashboard API, without a browser
  status    Show current statistics and session state
  help      Show this help message

Options:
  -config string    Path to config file (default "./config/config.yaml")
  -log-level string Log level: debug, info, warn, error
  -headless         Run browser in headless mode

Examples:
  instagram-automation login
  instagram-automation run
  instagram-automation -log-level debug audit natgeo
  instagram-automation serve

Configuration:
  1. Copy .env.example to .env for environment overrides
  2. Edit config/config.yaml to customize sources, delays and limits
  3. Run 'instagram-automation login' to authenticate

For more information, see README.md
`)
}
