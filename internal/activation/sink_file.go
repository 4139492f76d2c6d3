package activation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink appends audit events to a JSONL file, one object per line.
// Every event goes out in a single Write so concurrent deliveries never
// interleave within a line, and nothing is buffered: a crash loses at
// most the event being written.
type FileSink struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func NewFileSink(path string) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file_jsonl sink needs a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file_jsonl sink: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file_jsonl sink: %w", err)
	}
	return &FileSink{path: path, f: f}, nil
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.path }

func (s *FileSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("file_jsonl sink: encode event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return errors.New("file_jsonl sink is closed")
	}
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("file_jsonl sink: write event: %w", err)
	}
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
