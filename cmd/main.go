package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/MimeLyc/blueprint-sub-translator/internal/config"
	"github.com/MimeLyc/blueprint-sub-translator/internal/httpapi"
	"github.com/MimeLyc/blueprint-sub-translator/internal/llm"
	"github.com/MimeLyc/blueprint-sub-translator/internal/service"
	"github.com/MimeLyc/blueprint-sub-translator/internal/store"
	"github.com/MimeLyc/blueprint-sub-translator/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.Server.LogLevel))

	db, err := store.NewSQLiteStore(filepath.Join(cfg.Server.DataDir, "jobs.db"))
	if err != nil {
		log.Fatal("Failed to open job store: %v", err)
	}
	defer db.Close()

	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:         cfg.LLM.APIKey,
		APIURL:         cfg.LLM.APIURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        cfg.LLM.Timeout,
		MaxRetries:     cfg.LLM.MaxRetries,
		InitialBackoff: time.Duration(cfg.LLM.InitialBackoffMS) * time.Millisecond,
		SiteURL:        cfg.LLM.SiteURL,
		AppName:        cfg.LLM.AppName,
	})
	if err != nil {
		log.Fatal("Failed to create LLM client: %v", err)
	}

	agentSet := agents.NewSet(llmClient, cfg.LLM.Model)

	var svcOpts []service.Option
	if cfg.LLM.EmbeddingModel != "" {
		svcOpts = append(svcOpts, service.WithGlossaryIndex(db, llmClient))
	}
	svc := service.NewService(db, agentSet, svcOpts...)

	engine := cron.New()
	maintenance := service.NewMaintenance(db, engine, cfg.Jobs.PruneCron,
		time.Duration(cfg.Jobs.RetentionDays)*24*time.Hour)

	srv := httpapi.NewServer(svc,
		httpapi.WithEnvironment(cfg.Server.Environment),
		httpapi.WithDefaultSettings(service.Settings{
			TargetLanguage: cfg.Translate.TargetLanguage,
			Tone:           cfg.Translate.Tone,
			BatchSize:      cfg.Translate.BatchSize,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, maintenance, engine, srv); err != nil {
		log.Fatal("Server exited with error: %v", err)
	}
}

func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
