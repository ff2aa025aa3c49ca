// Package runner wires configuration, telemetry and the run-mode factory
// for the integration hub.
package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/Vector/vector-integration-hub/integrations"
	"github.com/Vector/vector-integration-hub/integrations/airtable"
	"github.com/Vector/vector-integration-hub/integrations/hubspot"
	"github.com/Vector/vector-integration-hub/integrations/notion"
	"github.com/Vector/vector-integration-hub/tlmt"
	"github.com/Vector/vector-integration-hub/tlmt/gonoop"
	"github.com/Vector/vector-integration-hub/tlmt/goposthog"
)

const (
	RunModeServer = iota + 1
	RunModeWorker
)

var ErrInvalidRunMode = errors.New("invalid run mode")

// Runner is a process run mode: the HTTP server or the task worker.
type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

// Config is the process configuration, assembled from flags and environment.
type Config struct {
	RunMode          int
	Addr             string
	Debug            bool
	DisableTelemetry bool
	AllowedOrigins   []string
	RedirectBaseURL  string
	EncryptionKey    string

	Hubspot  hubspot.Config
	Notion   notion.Config
	Airtable airtable.Config
}

// ParseConfig reads flags and environment variables. Provider credentials
// always come from the environment; they are only needed once a user starts
// an authorization attempt, so missing ones are not fatal here.
func ParseConfig() *Config {
	cfg := Config{}

	var (
		worker  bool
		origins string
	)

	flag.StringVar(&cfg.Addr, "addr", ":8000", "address to listen on for the HTTP server")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.BoolVar(&worker, "worker", false, "run the background task worker instead of the HTTP server")
	flag.BoolVar(&cfg.DisableTelemetry, "disable-telemetry", false, "disable anonymous usage telemetry")
	flag.StringVar(&origins, "allowed-origins", "", "comma separated list of allowed CORS origins")

	flag.Parse()

	if origins == "" {
		origins = getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	}

	cfg.AllowedOrigins = strings.Split(origins, ",")

	cfg.RedirectBaseURL = getEnvOrDefault("REDIRECT_BASE_URL", "http://localhost:8000")
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")

	cfg.Hubspot = hubspot.Config{
		ClientID:     os.Getenv("HUBSPOT_CLIENT_ID"),
		ClientSecret: os.Getenv("HUBSPOT_CLIENT_SECRET"),
		RedirectURL:  redirectURL(cfg.RedirectBaseURL, hubspot.Name),
	}

	cfg.Notion = notion.Config{
		ClientID:     os.Getenv("NOTION_CLIENT_ID"),
		ClientSecret: os.Getenv("NOTION_CLIENT_SECRET"),
		RedirectURL:  redirectURL(cfg.RedirectBaseURL, notion.Name),
	}

	cfg.Airtable = airtable.Config{
		ClientID:     os.Getenv("AIRTABLE_CLIENT_ID"),
		ClientSecret: os.Getenv("AIRTABLE_CLIENT_SECRET"),
		RedirectURL:  redirectURL(cfg.RedirectBaseURL, airtable.Name),
	}

	if os.Getenv("DISABLE_TELEMETRY") == "1" {
		cfg.DisableTelemetry = true
	}

	if cfg.DisableTelemetry {
		os.Setenv("DISABLE_TELEMETRY", "1")
	}

	cfg.RunMode = RunModeServer
	if worker {
		cfg.RunMode = RunModeWorker
	}

	return &cfg
}

// NewRegistry builds the adapter lookup table from the configured providers.
func NewRegistry(cfg *Config) *integrations.Registry {
	return integrations.NewRegistry(
		hubspot.New(cfg.Hubspot),
		notion.New(cfg.Notion),
		airtable.New(cfg.Airtable),
	)
}

func redirectURL(base, provider string) string {
	return fmt.Sprintf("%s/integrations/%s/oauth2callback", strings.TrimSuffix(base, "/"), provider)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry returns the process-wide telemetry sink, a noop one unless a
// PostHog key is configured and telemetry is enabled.
func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		if os.Getenv("DISABLE_TELEMETRY") == "1" {
			telemetry = gonoop.New()

			return
		}

		apiKey := os.Getenv("POSTHOG_API_KEY")
		if apiKey == "" {
			telemetry = gonoop.New()

			return
		}

		endpoint := getEnvOrDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

		val, err := goposthog.New(apiKey, endpoint)
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(0)
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		lineWidth := runewidth.StringWidth(line)
		paddingRight := contentWidth - lineWidth

		if paddingRight < 0 {
			paddingRight = 0
		}

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

// Banner prints the startup banner to stderr.
func Banner(mode string) {
	message1 := "🔌 Integration Hub"
	message2 := "Brokering HubSpot, Notion and Airtable connections (" + mode + " mode)"

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2}, 0))
}
