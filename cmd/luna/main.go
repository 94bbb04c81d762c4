// Command luna runs the spoken-conversation tutor backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lunavoice/luna/pkg/core/asr"
	"github.com/lunavoice/luna/pkg/core/llm"
	"github.com/lunavoice/luna/pkg/core/tts"
	"github.com/lunavoice/luna/pkg/engine"
	"github.com/lunavoice/luna/pkg/engine/artifacts"
	"github.com/lunavoice/luna/pkg/engine/store"
	"github.com/lunavoice/luna/pkg/gateway/config"
	"github.com/lunavoice/luna/pkg/gateway/metrics"
	gatewayserver "github.com/lunavoice/luna/pkg/gateway/server"
	"github.com/lunavoice/luna/pkg/history"
)

type appDeps struct {
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required when LUNA_LLM_PROVIDER=gemini")
		}
		return llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required when LUNA_LLM_PROVIDER=openai")
		}
		return llm.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	}
}

func buildASR(cfg config.Config, logger *slog.Logger) asr.Provider {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, transcription runs in placeholder mode")
		return asr.Placeholder{}
	}
	return asr.NewWhisper(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.WhisperModel)
}

func buildTTS(cfg config.Config, logger *slog.Logger) tts.Provider {
	if cfg.CartesiaAPIKey == "" {
		logger.Warn("CARTESIA_API_KEY not set, replies will be text-only")
		return tts.Silent{}
	}
	return tts.NewCartesia(cfg.CartesiaAPIKey, cfg.CartesiaVoiceID)
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	llmProvider, err := buildLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() { _ = hist.Close() }()

	am, err := artifacts.New(cfg.AudioDir)
	if err != nil {
		return fmt.Errorf("prepare audio dir: %w", err)
	}

	mtr := metrics.New()
	eng, err := engine.New(engine.Config{
		MaxTurnPairs: cfg.MaxTurnPairs,
		IdleTimeout:  cfg.SessionIdleTimeout,
		SweepPeriod:  cfg.CleanupPeriod,
	}, engine.Deps{
		Store:     store.New(),
		Artifacts: am,
		ASR:       buildASR(cfg, logger),
		LLM:       llmProvider,
		TTS:       buildTTS(cfg, logger),
		History:   hist,
		Metrics:   mtr,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go eng.RunSweeper(sweepCtx)

	gw := gatewayserver.New(cfg, gatewayserver.Deps{
		Engine:  eng,
		History: hist,
		Metrics: mtr,
		Logger:  logger,
	})
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting tutor backend",
		"addr", cfg.Addr,
		"llm_provider", cfg.LLMProvider,
		"audio_dir", cfg.AudioDir,
		"history_db", cfg.HistoryDBPath)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("tutor backend stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	// A missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "luna: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
