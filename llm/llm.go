// Package llm is the AI boundary: it turns a schema-derived prompt and a
// user question into one candidate SQL string.
//
// The package never sees row data, only table metadata embedded in the
// prompt, and it never executes anything; the caller's SQL guard decides
// what the returned string is allowed to do.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client produces one candidate SQL string for a question.
// Implementations: Anthropic, Gemini.
type Client interface {
	// GenerateSQL returns raw model output for the given prompt. The
	// output may still contain code fences or commentary; callers
	// sanitize it before use.
	GenerateSQL(ctx context.Context, prompt string) (string, error)
}

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 30 * time.Second

// ErrNoCandidate indicates the model returned an empty response.
var ErrNoCandidate = errors.New("llm: model returned no candidate")

// Config selects and configures a provider.
type Config struct {
	// Provider is "anthropic" or "gemini".
	Provider string
	// APIKey authenticates with the provider.
	APIKey string
	// Model overrides the provider's default model name.
	Model string
	// Endpoint overrides the provider's default API endpoint. Only the
	// Gemini client honors it; useful for tests.
	Endpoint string
	// Timeout bounds one model call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// New returns the Client for cfg.Provider.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		return NewGemini(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// CleanResponse trims markdown fences and surrounding prose from model
// output, keeping the part that looks like the SQL statement.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)

	// Prefer a fenced block when present.
	if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		body = strings.TrimPrefix(body, "sql")
		body = strings.TrimPrefix(body, "\n")
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		s = strings.TrimSpace(body)
	}

	// Drop a leading "SQL:" label some models add.
	s = strings.TrimSpace(strings.TrimPrefix(s, "SQL:"))
	return s
}
