package llm

import (
	"fmt"
	"strings"

	"topic2manim/internal/services"
)

// Provider names a concrete LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// Preference is the caller's requested provider. PreferAuto lets the resolver
// pick whichever provider has a credential.
type Preference string

const (
	PreferAuto   Preference = "auto"
	PreferOpenAI Preference = "openai"
	PreferClaude Preference = "claude"
)

// MissingKeyMessage is recorded when neither provider has a credential.
const MissingKeyMessage = "No API key found! Please configure either CLAUDE_API_KEY or OPENAI_API_KEY in your .env file"

// ParsePreference normalizes a user supplied provider name. The empty string
// maps to PreferAuto; "anthropic" is accepted as an alias for claude.
func ParsePreference(value string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(PreferAuto):
		return PreferAuto, nil
	case string(PreferOpenAI):
		return PreferOpenAI, nil
	case string(PreferClaude), "anthropic":
		return PreferClaude, nil
	default:
		return "", services.Wrap(services.ErrValidation, "llm", "parse provider",
			fmt.Sprintf("unknown llm provider %q (expected auto, openai or claude)", value), nil)
	}
}

// Resolve picks the provider for a job. An explicit preference wins when its
// credential is present; otherwise claude is preferred over openai. With no
// credential at all the result is a configuration error.
func Resolve(pref Preference, hasOpenAI, hasClaude bool) (Provider, error) {
	switch {
	case pref == PreferClaude && hasClaude:
		return ProviderClaude, nil
	case pref == PreferOpenAI && hasOpenAI:
		return ProviderOpenAI, nil
	case hasClaude:
		return ProviderClaude, nil
	case hasOpenAI:
		return ProviderOpenAI, nil
	}
	return "", services.Wrap(services.ErrConfiguration, "llm", "resolve provider", MissingKeyMessage, nil)
}
