package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/infer"
	"inferd/internal/registry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	var flags config.Config
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Model inference server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath, flags)
		},
	}
	root.Flags().StringVar(&cfgPath, "config", "", "Path to a config file (.toml/.yaml/.json)")
	root.Flags().StringVar(&flags.Addr, "addr", "", "HTTP listen address, e.g. :8000 (defaults INFERD_ADDR or :8000)")
	root.Flags().StringVar(&flags.ModelRepository, "model-repo", "", "Model repository directory")
	root.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	return root
}

// run merges config file and flags, builds the registry and serves
// until SIGINT/SIGTERM.
func run(cfgPath string, flags config.Config) error {
	cfg := config.Config{Addr: ":8000", ModelRepository: "./models", LogLevel: "info"}
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		mergeConfig(&cfg, loaded)
	}
	mergeConfig(&cfg, flags)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
	infer.SetLogger(logger)
	httpapi.SetLogger(logger)
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}

	models, err := registry.LoadDir(cfg.ModelRepository)
	if err != nil {
		return err
	}
	reg, err := registry.New(models, func(s *infer.Servable) error {
		return s.SetConfiguredScheduler(backend.Echo(s))
	})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(reg)}
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("model_repo", cfg.ModelRepository).
			Int("models", len(models)).
			Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// mergeConfig overlays non-zero fields of src onto dst.
func mergeConfig(dst *config.Config, src config.Config) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.ModelRepository != "" {
		dst.ModelRepository = src.ModelRepository
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.MaxBodyBytes != 0 {
		dst.MaxBodyBytes = src.MaxBodyBytes
	}
}
