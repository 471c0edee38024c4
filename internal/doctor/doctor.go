// Package doctor runs runtime readiness diagnostics for config, locale,
// audio, and the lookup backend.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mreilly/povox/internal/audio"
	"github.com/mreilly/povox/internal/config"
	"github.com/mreilly/povox/internal/i18n"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{
		checkConfig(cfg),
		checkLocale(cfg.Config),
		checkAudioSelection(cfg.Config),
		checkBackendReady(cfg.Config),
	}
	return Report{Checks: checks}
}

// checkConfig reports where the effective configuration came from.
func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: "no config file; using defaults"}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkLocale validates the default locale tag and reports the bundle it
// resolves to.
func checkLocale(cfg config.Config) Check {
	tag, err := language.Parse(cfg.Locale.Default)
	if err != nil {
		return Check{
			Name:    "locale.default",
			Pass:    false,
			Message: fmt.Sprintf("invalid locale tag %q: %v", cfg.Locale.Default, err),
		}
	}
	bundle := i18n.Resolve(cfg.Locale.Default)
	return Check{
		Name:    "locale.default",
		Pass:    true,
		Message: fmt.Sprintf("%s resolves to bundle %s", tag, bundle.Tag()),
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBackendReady probes the backend base URL. The reference backend has
// no dedicated health route, so any response below 500 counts as reachable.
func checkBackendReady(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return Check{Name: "backend.ready", Pass: false, Message: "backend.base_url is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + cfg.Backend.HealthPath
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: "backend.ready", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode >= 500 {
		return Check{Name: "backend.ready", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "backend.ready", Pass: true, Message: fmt.Sprintf("reachable at %s (HTTP %d)", url, resp.StatusCode)}
}
