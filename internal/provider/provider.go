// Package provider holds the upstream LLM clients used by the compare
// demo. The analyze pipeline never talks to a provider; only the
// compare endpoint forwards prompts upstream.
package provider

import (
	"context"
	"fmt"
)

// Provider is the interface for all upstream LLM providers.
type Provider interface {
	// Complete sends a single user prompt and returns the model's text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// echoProvider simulates an LLM by reflecting the prompt back. It keeps
// the compare demo usable without credentials and backs the tests.
type echoProvider struct{}

// NewEcho creates the echo provider.
func NewEcho() Provider {
	return &echoProvider{}
}

func (p *echoProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("echo: %s", prompt), nil
}
