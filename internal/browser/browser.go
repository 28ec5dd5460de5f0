package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"instagram-automation/internal/config"
	stealthpkg "instagram-automation/internal/stealth"
)

type Browser struct {
	browser *rod.Browser
	config  *config.BrowserConfig
	stealth *stealthpkg.Controller
	logger  zerolog.Logger
}

func NewBrowser(cfg *config.BrowserConfig, stealthCtrl *stealthpkg.Controller, logger zerolog.Logger) (*Browser, error) {
	logger = logger.With().Str("component", "browser").Logger()
	logger.Info().Msg("Initializing browser")

	// Ensure user data directory exists
	if cfg.UserDataDir != "" {
		if err := os.MkdirAll(cfg.UserDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create user data directory: %w", err)
		}
	}

	l := launcher.New()

	// User data directory keeps the logged-in session across runs
	if cfg.UserDataDir != "" {
		absPath, err := filepath.Abs(cfg.UserDataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for user data dir: %w", err)
		}
		l = l.UserDataDir(absPath)
	}

	if cfg.Headless {
		l = l.Headless(true)
		logger.Info().Msg("Running in headless mode")
	} else {
		l = l.Headless(false)
		logger.Info().Msg("Running in headed mode (visible browser)")
	}

	// Stealth flags
	l = l.Set("disable-blink-features", "AutomationControlled")
	l = l.Set("disable-infobars")
	l = l.Set("disable-dev-shm-usage")
	l = l.Set("no-first-run")
	l = l.Set("no-default-browser-check")

	userAgent := stealthpkg.GetRandomUserAgent()
	l = l.Set("user-agent", userAgent)
	logger.Debug().Str("userAgent", userAgent).Msg("Set user agent")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	browser = browser.Timeout(30 * time.Second)

	logger.Info().Msg("Browser initialized successfully")

	return &Browser{
		browser: browser,
		config:  cfg,
		stealth: stealthCtrl,
		logger:  logger,
	}, nil
}

// NewPage creates a new page with stealth settings applied
func (b *Browser) NewPage() (*rod.Page, error) {
	b.logger.Debug().Msg("Creating new page with stealth")

	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.config.ViewportWidth,
		Height: b.config.ViewportHeight,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to set viewport")
	}

	if b.stealth != nil {
		if err := b.stealth.ApplyToPage(page); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to apply stealth settings")
		}
	}

	return page, nil
}

// GetPage returns an existing page or creates a new one
func (b *Browser) GetPage() (*rod.Page, error) {
	pages, err := b.browser.Pages()
	if err != nil {
		return nil, err
	}

	if len(pages) > 0 {
		return pages[0], nil
	}

	return b.NewPage()
}

// Navigate navigates to a URL with proper waiting
func (b *Browser) Navigate(page *rod.Page, url string) error {
	b.logger.Debug().Str("url", url).Msg("Navigating to URL")

	err := page.Navigate(url)
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		b.logger.Warn().Err(err).Msg("WaitLoad failed, continuing anyway")
	}

	page.WaitDOMStable(time.Second, 0.1)

	if b.stealth != nil {
		b.stealth.Timing().PageLoadDelay()
	}

	return nil
}

// Back navigates one step back in history and waits for stability.
func (b *Browser) Back(page *rod.Page) error {
	if err := page.NavigateBack(); err != nil {
		return fmt.Errorf("failed to navigate back: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn().Err(err).Msg("WaitLoad after back failed, continuing anyway")
	}
	page.WaitDOMStable(time.Second, 0.1)
	return nil
}

// Reload reloads the current page.
func (b *Browser) Reload(page *rod.Page) error {
	if err := page.Reload(); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn().Err(err).Msg("WaitLoad after reload failed, continuing anyway")
	}
	return nil
}

// Close closes the browser
func (b *Browser) Close() error {
	b.logger.Info().Msg("Closing browser")
	return b.browser.Close()
}

// Browser returns the underlying rod.Browser
func (b *Browser) Browser() *rod.Browser {
	return b.browser
}

// IsConnected checks if browser is still connected
func (b *Browser) IsConnected() bool {
	pages, err := b.browser.Pages()
	return err == nil && pages != nil
}
