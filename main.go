package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"churn-features/pkg/calculator"
	"churn-features/pkg/config"
	"churn-features/pkg/csvio"
	"churn-features/pkg/database"
	"churn-features/pkg/models"
	"churn-features/pkg/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "config/config.yaml", "Fichier de configuration YAML")
	dsn := flag.String("dsn", "", "DSN source (mariadb://, postgres://, sqlite://); remplace paths.input")
	logLevel := flag.String("log-level", "", "Niveau de log (debug|info|warn|error)")
	verbose := flag.Bool("v", false, "Affiche la progression des étapes")
	flag.Parse()

	// les flags passent par l'environnement pour être validés avec le fichier
	if *dsn != "" {
		os.Setenv("CHURN_FEATURES_DSN", *dsn)
	}
	if *logLevel != "" {
		os.Setenv("CHURN_FEATURES_LOG_LEVEL", *logLevel)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Verbose = *verbose

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	err = run(logger, cfg, *configPath)
	if err != nil {
		logger.Error("feature engineering failed", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns the deferred cleanups; main turns its error into the exit status.
func run(logger *zap.Logger, cfg models.Config, configPath string) error {
	logger.Info("configuration loaded",
		zap.String("config", configPath),
		zap.Time("observation_start", cfg.ObservationStart),
		zap.Time("observation_end", cfg.ObservationEnd),
		zap.Time("outcome_start", cfg.OutcomeStart),
		zap.Time("outcome_end", cfg.OutcomeEnd),
		zap.Int("min_tenure_days", cfg.MinTenureDays),
		zap.Int("min_frequency", cfg.MinFrequency))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Source : base SQL si un DSN est fourni, sinon le CSV nettoyé
	var src calculator.Source = csvio.Source{Path: cfg.InputPath}
	if cfg.DSN != "" {
		db, driver, err := database.Open(cfg.DSN)
		if err != nil {
			return fmt.Errorf("open source database: %w", err)
		}
		defer db.Close()
		logger.Info("connected", zap.String("driver", driver))
		src = database.Source{DB: db, Table: cfg.Table, DSN: cfg.DSN}
	}

	_, err := calculator.Run(ctx, src, csvio.Sink{Path: cfg.OutputPath}, cfg, calculator.Options{
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Report:   os.Stdout,
		Progress: os.Stderr,
	})
	return err
}
