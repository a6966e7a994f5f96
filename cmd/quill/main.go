// Command quill serves the research, write and critique pipeline over HTTP.
//
// With -topic it runs the pipeline once and prints the response payload
// instead of serving.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
	"github.com/zoobzio/quill/anthropic"
	"github.com/zoobzio/quill/azure"
	"github.com/zoobzio/quill/duckduckgo"
	"github.com/zoobzio/quill/gemini"
	"github.com/zoobzio/quill/internal/config"
	"github.com/zoobzio/quill/internal/logging"
	"github.com/zoobzio/quill/internal/server"
	"github.com/zoobzio/quill/openai"
	"go.alis.build/alog"
)

func main() {
	topic := flag.String("topic", "", "run the pipeline once for this topic and print the result")
	configPath := flag.String("config", "", "config file (defaults to $QUILL_CONFIG or quill.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *topic); err != nil {
		alog.Errorf(ctx, "quill: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, topic string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	if configPath == "" {
		configPath = config.Path()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.SetLevel(cfg.LogLevel)
	observer := capitan.Observe(logging.Sink)
	defer observer.Close()

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	if topic != "" {
		return runOnce(ctx, pipeline, topic)
	}
	return serve(ctx, cfg, pipeline)
}

// buildPipeline wires the configured providers and the searcher.
func buildPipeline(ctx context.Context, cfg config.Config) (*quill.Pipeline, error) {
	primary := newProvider(ctx, cfg, cfg.Provider.ProviderRef, cfg.Provider.BaseURL)

	var opts []quill.Option
	if cfg.Pipeline.CallTimeout > 0 {
		opts = append(opts, quill.WithTimeout(cfg.Pipeline.CallTimeout))
	}
	if cfg.Pipeline.BreakerFailures > 0 {
		opts = append(opts, quill.WithCircuitBreaker(cfg.Pipeline.BreakerFailures, cfg.Pipeline.BreakerRecovery))
	}
	if cfg.Fallback != nil {
		fallback := newProvider(ctx, cfg, *cfg.Fallback, "")
		opts = append(opts, quill.WithFallback(quill.NewGenerator(fallback)))
		alog.Infof(ctx, "fallback provider %s enabled", fallback.Name())
	}

	searcher := duckduckgo.New(duckduckgo.Config{
		BaseURL:    cfg.Search.BaseURL,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.Search.Timeout,
	})

	return quill.NewArticlePipeline(searcher, primary, opts...)
}

func newProvider(ctx context.Context, cfg config.Config, ref config.ProviderRef, baseURL string) quill.Provider {
	key := cfg.APIKey(ref.Name)
	if key == "" {
		alog.Warnf(ctx, "no API key set for provider %s; generation calls will fail", ref.Name)
	}

	switch ref.Name {
	case config.ProviderAnthropic:
		return anthropic.New(anthropic.Config{APIKey: key, Model: ref.Model, BaseURL: baseURL, Timeout: cfg.Provider.Timeout})
	case config.ProviderGemini:
		return gemini.New(gemini.Config{APIKey: key, Model: ref.Model, BaseURL: baseURL, Timeout: cfg.Provider.Timeout})
	case config.ProviderAzure:
		return azure.New(azure.Config{Endpoint: baseURL, APIKey: key, Deployment: ref.Model, Timeout: cfg.Provider.Timeout})
	default:
		return openai.New(openai.Config{APIKey: key, Model: ref.Model, BaseURL: baseURL, Timeout: cfg.Provider.Timeout})
	}
}

func runOnce(ctx context.Context, pipeline *quill.Pipeline, topic string) error {
	state, err := pipeline.Run(ctx, topic)
	if err != nil {
		return err
	}
	record := state.Record()
	out, err := json.MarshalIndent(map[string]string{
		"topic":            topic,
		"research_summary": record.ResearchSummary,
		"draft":            record.DraftArticle,
		"final":            record.ReviewedArticle,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func serve(ctx context.Context, cfg config.Config, pipeline *quill.Pipeline) error {
	srv := server.New(pipeline, server.Config{
		Service: cfg.Service,
		Timeout: cfg.Server.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		alog.Infof(ctx, "%s listening on %s", cfg.Service, httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	alog.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
