// Package stealth - fingerprint masking for the automation browser
package stealth

import (
	"fmt"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

// desktopAgents is the pool the browser identifies itself from. All
// desktop: Instagram serves the mobile web app to phone agents, which
// has a different DOM than the selectors in this module expect.
var desktopAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// fingerprint holds the hardware profile a session pretends to run on.
// One profile per call keeps the values internally consistent: a 1366
// screen does not report 16 cores.
type fingerprint struct {
	screenW  int
	screenH  int
	cores    int
	memoryGB int
	timezone string
}

var screenSizes = [][2]int{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{2560, 1440},
	{1680, 1050},
}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Paris",
}

func randomFingerprint() fingerprint {
	size := screenSizes[rand.Intn(len(screenSizes))]
	cores := []int{4, 8, 12, 16}
	mem := []int{4, 8, 16}

	fp := fingerprint{
		screenW:  size[0],
		screenH:  size[1],
		timezone: timezones[rand.Intn(len(timezones))],
	}

	// Small screens report small machines.
	if fp.screenW >= 1920 {
		fp.cores = cores[1+rand.Intn(3)]
		fp.memoryGB = mem[1+rand.Intn(2)]
	} else {
		fp.cores = cores[rand.Intn(2)]
		fp.memoryGB = mem[rand.Intn(2)]
	}

	return fp
}

// ApplyFingerprint injects the stealth evasions plus a consistent
// hardware profile before any page script runs. The go-rod/stealth
// bundle covers navigator.webdriver and friends; the profile script
// layers screen, CPU, and timezone on top.
func ApplyFingerprint(page *rod.Page, logger zerolog.Logger) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}

	fp := randomFingerprint()
	if _, err := page.EvalOnNewDocument(fp.script()); err != nil {
		// The stealth bundle is the part that matters; the profile
		// layer failing only loses entropy.
		logger.Warn().Err(err).Msg("Hardware profile injection failed")
	}

	logger.Debug().
		Int("screenW", fp.screenW).
		Str("timezone", fp.timezone).
		Msg("Fingerprint applied")

	return nil
}

// GetRandomUserAgent picks the user agent for a browser launch.
func GetRandomUserAgent() string {
	return desktopAgents[rand.Intn(len(desktopAgents))]
}

func (fp fingerprint) script() string {
	return fmt.Sprintf(`
		Object.defineProperty(screen, 'width', { get: () => %d });
		Object.defineProperty(screen, 'height', { get: () => %d });
		Object.defineProperty(screen, 'availWidth', { get: () => %d });
		Object.defineProperty(screen, 'availHeight', { get: () => %d });
		Object.defineProperty(screen, 'colorDepth', { get: () => 24 });
		Object.defineProperty(screen, 'pixelDepth', { get: () => 24 });

		Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
		Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
		Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 0 });

		const RealDateTimeFormat = Intl.DateTimeFormat;
		Intl.DateTimeFormat = function(locale, options) {
			options = options || {};
			options.timeZone = options.timeZone || '%s';
			return new RealDateTimeFormat(locale, options);
		};

		const realQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (parameters) => {
			if (parameters.name === 'notifications') {
				return Promise.resolve({ state: Notification.permission });
			}
			return realQuery(parameters);
		};

		try {
			const canvas = document.createElement('canvas');
			const gl = canvas.getContext('webgl') || canvas.getContext('experimental-webgl');
			if (gl) {
				const realGetParameter = gl.getParameter;
				gl.getParameter = new Proxy(realGetParameter, {
					apply: function(target, thisArg, args) {
						if (args[0] === 37445) { return 'Google Inc. (NVIDIA)'; }
						if (args[0] === 37446) { return 'ANGLE (NVIDIA, NVIDIA GeForce GTX 1080 Direct3D11 vs_5_0 ps_5_0, D3D11)'; }
						return target.apply(thisArg, args);
					}
				});
			}
		} catch (e) {}

		if ('connection' in navigator) {
			Object.defineProperty(navigator.connection, 'effectiveType', { get: () => '4g' });
			Object.defineProperty(navigator.connection, 'rtt', { get: () => 50 });
			Object.defineProperty(navigator.connection, 'downlink', { get: () => 10 });
		}
	`,
		fp.screenW, fp.screenH,
		fp.screenW, fp.screenH-40,
		fp.cores, fp.memoryGB,
		fp.timezone,
	)
}
