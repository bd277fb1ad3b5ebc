// Command newswatch performs one complete watch pass: fetch the municipal
// news page, extract articles, notify about the unseen ones via Viber and
// record them in the seen ledger. It is meant to be invoked repeatedly by an
// external scheduler; overlapping invocations are the scheduler's problem.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mvelinov/newswatch"
	"github.com/mvelinov/newswatch/archive"
	"github.com/mvelinov/newswatch/config"
	"github.com/mvelinov/newswatch/ledger"
	"github.com/mvelinov/newswatch/viber"
)

func main() {
	// A .env file is optional; deployments usually set variables through
	// the scheduler instead.
	_ = godotenv.Load()

	cfg := config.FromEnv()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.ApplyFile(cfg.ConfigFile); err != nil {
		log.Fatal("failed to load config overrides", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting newswatch",
		zap.String("news_url", cfg.NewsURL),
		zap.String("state_file", cfg.StatePath),
		zap.Bool("dry_run", cfg.DryRun))

	extractor := newswatch.NewExtractor(cfg.NewsURL, newswatch.Heuristics{
		Selectors:      cfg.Selectors,
		SkipPatterns:   cfg.SkipPatterns,
		DomainFragment: cfg.DomainFragment,
	}, log)
	fetcher := newswatch.NewFetcher(cfg.NewsURL, extractor, log)
	seen := ledger.Open(cfg.StatePath, log)

	var notifier newswatch.Notifier
	if cfg.DryRun {
		log.Info("dry run mode, no messages will be sent")
	} else {
		notifier = viber.New(cfg.ViberToken, cfg.ViberChatID, log)
	}

	var store newswatch.Archive
	if cfg.ArchivePath != "" {
		s, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Warn("archive disabled", zap.Error(err))
		} else {
			defer s.Close()
			store = s
		}
	}

	runner := newswatch.NewRunner(fetcher, seen, notifier, store, cfg.DryRun, log)
	runner.Run()

	log.Info("completed successfully")
}

// newLogger builds a production zap logger at the configured level. An
// unknown level falls back to info rather than failing the run.
func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.Set(strings.ToLower(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
