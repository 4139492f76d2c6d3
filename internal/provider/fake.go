package provider

import "context"

// FakeProvider returns a fixed response or error. Test helper.
type FakeProvider struct {
	ResponseText string
	Error        error
	LastPrompt   string
}

func (f *FakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.LastPrompt = prompt
	if f.Error != nil {
		return "", f.Error
	}
	return f.ResponseText, nil
}

func NewFake(response string) *FakeProvider {
	return &FakeProvider{ResponseText: response}
}
