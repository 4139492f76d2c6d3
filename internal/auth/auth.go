// Package auth maps client API keys to client identities. Auth is
// optional: a config without clients runs the gateway open, which is
// the normal mode for local evaluation.
package auth

import (
	"fmt"

	"github.com/promptguard-ai/promptguard/internal/config"
)

// Client is the runtime identity behind an API key.
type Client struct {
	ID string
}

// Auth holds the API key to client mapping. A nil *Auth means auth is
// disabled and every request is accepted anonymously.
type Auth struct {
	apiKeyToClient map[string]Client
}

// NewFromConfig builds an Auth instance from the loaded config.
// It returns nil when no clients are configured.
func NewFromConfig(cfg *config.Config) (*Auth, error) {
	if len(cfg.Clients) == 0 {
		return nil, nil
	}

	m := make(map[string]Client)
	for _, c := range cfg.Clients {
		if c.ID == "" {
			return nil, fmt.Errorf("client with empty id in config")
		}
		for _, key := range c.APIKeys {
			if key == "" {
				continue
			}
			if _, exists := m[key]; exists {
				return nil, fmt.Errorf("api key %q is assigned to multiple clients", key)
			}
			m[key] = Client{ID: c.ID}
		}
	}

	return &Auth{apiKeyToClient: m}, nil
}

// Enabled reports whether requests must carry a known API key.
func (a *Auth) Enabled() bool {
	return a != nil
}

// Lookup returns the client for a given API key, if any.
func (a *Auth) Lookup(apiKey string) (Client, bool) {
	if a == nil {
		return Client{}, false
	}
	c, ok := a.apiKeyToClient[apiKey]
	return c, ok
}
