package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptguard-ai/promptguard/internal/activation"
	"github.com/promptguard-ai/promptguard/internal/config"
	"github.com/promptguard-ai/promptguard/internal/redact"
	"github.com/promptguard-ai/promptguard/internal/server"
	"github.com/promptguard-ai/promptguard/internal/telemetry"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "promptguard.yaml", "Path to PromptGuard config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		redact.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		redact.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.ServiceName,
		Version:  version,
	})
	if err != nil {
		redact.Fatalf("telemetry setup: %v", err)
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		redact.Fatalf("activation sinks: %v", err)
	}
	emitter := activation.NewEmitter(activation.EmitterConfig{
		QueueSize: cfg.Activation.QueueSize,
		Workers:   cfg.Activation.Workers,
	}, sinks)

	srv, err := server.New(cfg, tel, emitter)
	if err != nil {
		redact.Fatalf("server setup: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		redact.Logf("promptguard listening on %s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			redact.Fatalf("server error: %v", err)
		}
	case sig := <-sigCh:
		redact.Logf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		redact.Logf("http shutdown: %v", err)
	}
	emitter.Close(shutdownCtx)
	tel.Shutdown(shutdownCtx)
}

const version = "0.1.0"

func buildSinks(cfg *config.Config) ([]activation.Sink, error) {
	if len(cfg.Activation.Sinks) == 0 {
		return []activation.Sink{activation.NewStdoutSink()}, nil
	}
	var sinks []activation.Sink
	for _, sc := range cfg.Activation.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, activation.NewStdoutSink())
		case "file_jsonl":
			s, err := activation.NewFileSink(sc.Path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := activation.NewWebhookSink(sc.URL, 2*time.Second)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		}
	}
	return sinks, nil
}
