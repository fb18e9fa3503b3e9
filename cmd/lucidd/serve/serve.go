// Package servecmder provides the serve command that runs the API server
// with asynchronous enrichment.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/api"
	"github.com/lucidjournal/lucidd/pkg/bootstrap"
	"github.com/lucidjournal/lucidd/pkg/config"
	"github.com/lucidjournal/lucidd/pkg/journal/worker"
	"github.com/lucidjournal/lucidd/pkg/logger"
)

type ServeCommander struct {
	listen    string
	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the lucidd API server.

The server persists dream entries, keeps the vector index synchronized, and
enriches records asynchronously through a bounded worker pool. Configuration
comes from .lucidd/config.toml, LUCIDD_* environment variables, and flags.`

const serveShortDesc string = "Run the lucidd API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on (overrides config)")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg, err := LoadConfig(c.configDir)
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.API.Listen = c.listen
	}

	sys, err := bootstrap.Build(cfg, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("building system: %w", err)
	}
	defer sys.Close()

	// Repair any index drift left by a previous unclean shutdown before
	// taking traffic.
	if err := sys.Journal.Reconcile(context.Background()); err != nil {
		c.logger.Warn("startup reconciliation failed", zap.Error(err))
	}

	pool, err := worker.NewPool(&worker.Config{
		Journal:    sys.Journal,
		Publisher:  sys.Publisher,
		NumWorkers: cfg.Enrich.Workers,
		QueueSize:  cfg.Enrich.QueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
	}, sys.Journal, pool, sys.Publisher, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		pool.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	if err := apiServer.Shutdown(); err != nil {
		c.logger.Error("API server shutdown failed", zap.Error(err))
	}

	// Drain in-flight enrichment after the server stops accepting requests.
	pool.Close()

	return nil
}

// LoadConfig resolves the effective configuration through viper so that
// environment variables and the config file compose with defaults.
func LoadConfig(configDir string) (*config.Config, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	return configFromViper(v), nil
}

func configFromViper(v *viper.Viper) *config.Config {
	return &config.Config{
		Version: v.GetInt("version"),
		Storage: config.StorageConfig{
			Provider: v.GetString("storage.provider"),
			Path:     v.GetString("storage.path"),
		},
		API: config.APIConfig{
			Listen: v.GetString("api.listen"),
		},
		VectorStore: config.VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: config.EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		LLM: config.LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
		},
		Image: config.ImageConfig{
			Model: v.GetString("image.model"),
			Size:  v.GetString("image.size"),
		},
		Events: config.EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Enrich: config.EnrichConfig{
			Workers:   v.GetUint("enrich.workers"),
			QueueSize: v.GetUint("enrich.queue_size"),
		},
	}
}
