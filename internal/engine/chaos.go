// Package engine - chaos browsing
package engine

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"

	"instagram-automation/internal/instagram"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

// runChaos parks the bot on the home feed and idly browses for the
// configured duration, breaking up the mechanical rhythm of the main
// loop. The run is stamped as started before any browsing so a crash
// mid-chaos cannot cause back-to-back runs.
func (e *Engine) runChaos(page *rod.Page, delays models.DelayConfig) {
	e.logger.Info().Int("minutes", delays.ChaosDur).Msg("Starting chaos browsing")

	if err := e.store.AppendLog("Taking an unpredictability break", models.LogWait); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to log chaos start")
	}

	if err := e.browser.Navigate(page, instagram.HomeURL()); err != nil {
		e.logger.Warn().Err(err).Msg("Chaos home navigation failed")
		return
	}

	deadline := time.Now().Add(time.Duration(delays.ChaosDur) * time.Minute)

	for time.Now().Before(deadline) {
		if !e.running() {
			e.logger.Info().Msg("Bot deactivated during chaos, aborting")
			return
		}

		// Mostly scroll down, sometimes back up, like idle feed reading.
		if rand.Float64() < 0.8 {
			if err := e.stealth.Scroll().ScrollDown(page); err != nil {
				e.logger.Debug().Err(err).Msg("Chaos scroll failed")
			}
		} else {
			if err := e.stealth.Scroll().ScrollUp(page); err != nil {
				e.logger.Debug().Err(err).Msg("Chaos scroll failed")
			}
		}

		e.stealth.Timing().ThinkDelay()

		if err := e.stealth.RandomHover(page); err != nil {
			e.logger.Debug().Err(err).Msg("Chaos hover failed")
		}
	}

	// A reload drops whatever feed state accumulated and gives the next
	// loop iteration a clean page.
	if err := e.browser.Reload(page); err != nil {
		e.logger.Warn().Err(err).Msg("Post-chaos reload failed")
	}

	e.logger.Info().Msg("Chaos browsing finished")
}

// chaosDue reports whether a chaos run is overdue. The grace window
// after engine start keeps a stale stamp from firing chaos the moment
// the bot wakes up.
func (e *Engine) chaosDue(delays models.DelayConfig, now time.Time) bool {
	if delays.ChaosFreq <= 0 {
		return false
	}
	if now.Sub(e.startedAt) < time.Duration(delays.ChaosGrace)*time.Second {
		return false
	}

	var lastMillis int64
	if _, err := e.store.Get(store.KeyLastChaosTime, &lastMillis); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read chaos stamp")
		return false
	}

	if lastMillis == 0 {
		// First run of a fresh store: stamp now, chaos comes later.
		if err := e.store.Set(store.KeyLastChaosTime, now.UnixMilli()); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to seed chaos stamp")
		}
		return false
	}

	return now.UnixMilli()-lastMillis > int64(delays.ChaosFreq)*60*1000
}
