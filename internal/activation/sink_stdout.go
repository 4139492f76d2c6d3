package activation

import "context"

// StdoutSink writes events to the process log. It is the default sink
// when no others are configured, so verdicts are always observable.
type StdoutSink struct{}

func NewStdoutSink() *StdoutSink { return &StdoutSink{} }

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Deliver(_ context.Context, ev *Event) error {
	LogEvent(ev)
	return nil
}

func (s *StdoutSink) Close(context.Context) error { return nil }
