// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/core/events"
	"github.com/markdave123-py/pdfchat/internal/core/ingestion_engine"
	"github.com/markdave123-py/pdfchat/internal/core/llm"
	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
	"github.com/markdave123-py/pdfchat/internal/tracer"
)

const module = "APP"

type App struct {
	Config   *config.Config
	Logger   logger.ILogger
	Registry *session.Registry
	Bus      *events.Bus
	Server   *Server

	llm            *llm.GeminiLLM
	shutdownTracer func(context.Context) error
}

func NewApp(ctx context.Context, cfg *config.Config, log logger.ILogger) (*App, error) {
	shutdownTracer := tracer.InitTracer(cfg.OTelEnabled, cfg.OTelEndpoint, "pdfchat", log)

	llmProvider, err := NewLLM(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the completion client, %w", err)
	}
	log.Info(module, "Completion client initialized", map[string]interface{}{"model": cfg.GenModel})

	extractor, ocrAvailable := NewExtractor(cfg, log)
	bus := events.NewBus(log)
	registry := NewRegistry(cfg, session.Deps{
		Extractor: extractor,
		LLM:       llmProvider,
		Publisher: bus,
		Logger:    log,
	})

	sessionSvc := services.NewSessionService(registry, services.SystemInfo{
		Model:        cfg.GenModel,
		OCRAvailable: ocrAvailable,
		StartedAt:    time.Now(),
	}, log)
	documentSvc := services.NewDocumentService(registry, log)

	return &App{
		Config:         cfg,
		Logger:         log,
		Registry:       registry,
		Bus:            bus,
		Server:         NewServer(cfg, log, sessionSvc, documentSvc),
		llm:            llmProvider,
		shutdownTracer: shutdownTracer,
	}, nil
}

// NewLLM builds the Gemini completion client from configuration.
func NewLLM(ctx context.Context, cfg *config.Config) (*llm.GeminiLLM, error) {
	return llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel, llm.Options{
		Temperature:     float32(cfg.Temperature),
		MaxOutputTokens: int32(cfg.MaxOutputTokens),
	})
}

// NewExtractor builds the hybrid direct/OCR extractor and reports whether OCR is usable.
func NewExtractor(cfg *config.Config, log logger.ILogger) (core.DocumentExtractor, bool) {
	ocr := ingestion_engine.NewOCRSpaceClient(cfg.OCRAPIURL, cfg.OCRAPIKey, cfg.OCRLanguage, &http.Client{
		Timeout: cfg.ExtractionTimeout(),
	})
	if ocr.Available() {
		log.Info(module, "OCR.space API available for scanned PDFs", nil)
	} else {
		log.Warn(module, "OCR API key not configured, scanned PDFs won't be processed", nil)
	}
	useReadability := false
	direct := ingestion_engine.NewDocconvExtractor(useReadability)
	return ingestion_engine.NewHybridExtractor(direct, ocr, log), ocr.Available()
}

// NewRegistry builds a session registry with the configured policy.
func NewRegistry(cfg *config.Config, deps session.Deps, opts ...session.RegistryOption) *session.Registry {
	return session.NewRegistry(SessionConfig(cfg), deps, opts...)
}

func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Timeout:               cfg.SessionTimeout(),
		ModelTokenLimit:       cfg.ModelTokenLimit,
		MaxConversationLength: cfg.MaxConversationLength,
		MaxDocumentBytes:      cfg.MaxPDFBytes(),
		ExtractionTimeout:     cfg.ExtractionTimeout(),
		CompletionTimeout:     cfg.CompletionTimeout(),
	}
}

// Run serves HTTP, sweeps expired sessions and drains lifecycle events until
// ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := events.LogConsumer(gctx, a.Bus, a.Logger); err != nil {
		return fmt.Errorf("start event consumer: %w", err)
	}

	g.Go(func() error {
		return a.Registry.Run(gctx, a.Config.SweepInterval())
	})

	g.Go(func() error {
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() {
	cleared := a.Registry.Shutdown()
	a.Logger.Info(module, "Sessions cleared on shutdown", map[string]interface{}{"cleared_sessions": cleared})

	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.shutdownTracer(ctx)
	}
	_ = a.Logger.Sync()
}
