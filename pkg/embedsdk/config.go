// Package embedsdk is an in-process stand-in for a dashboard vendor's
// embedding SDK. It hands out a Report with a fixed set of mock visuals,
// renders it into a Container, and signals "loaded" after a simulated delay.
//
// Nothing here talks to a real dashboard service. The surface mirrors the
// handful of SDK calls the insights dashboard needs: embed, pages, visuals,
// per-report visibility and event handlers.
package embedsdk

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Embed when the embed configuration is unusable.
var ErrInvalidConfig = errors.New("embedsdk: invalid embed config")

// TokenType identifies how AccessToken should be interpreted.
type TokenType string

const (
	TokenTypeEmbed TokenType = "Embed"
	TokenTypeAad   TokenType = "Aad"
)

// EmbedType is the kind of artifact being embedded. Only reports are mocked.
const EmbedTypeReport = "report"

// Panes toggles the chrome around an embedded report.
type Panes struct {
	Filters        bool `json:"filters"`
	PageNavigation bool `json:"page_navigation"`
}

// Settings holds display settings for an embedded report.
type Settings struct {
	Panes Panes `json:"panes"`
}

// EmbedConfig describes what to embed and with which credentials.
type EmbedConfig struct {
	Type        string    `json:"type"`
	TokenType   TokenType `json:"token_type"`
	AccessToken string    `json:"access_token"`
	EmbedURL    string    `json:"embed_url"`
	ID          string    `json:"id"`
	Settings    Settings  `json:"settings"`
}

// DefaultEmbedConfig returns the configuration used by the demo dashboard.
func DefaultEmbedConfig() EmbedConfig {
	return EmbedConfig{
		Type:        EmbedTypeReport,
		TokenType:   TokenTypeEmbed,
		AccessToken: "mock-token",
		EmbedURL:    "mock-url",
		ID:          "mock-report-id",
		Settings: Settings{
			Panes: Panes{Filters: false, PageNavigation: false},
		},
	}
}

// Validate checks the fields the mock service relies on.
func (c EmbedConfig) Validate() error {
	if c.Type != EmbedTypeReport {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidConfig, c.Type)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	switch c.TokenType {
	case TokenTypeEmbed, TokenTypeAad:
	default:
		return fmt.Errorf("%w: unknown token type %q", ErrInvalidConfig, c.TokenType)
	}
	return nil
}
