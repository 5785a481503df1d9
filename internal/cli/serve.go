package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diwan-editor/docsearch/api"
	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/cache"
	"github.com/diwan-editor/docsearch/internal/engine"
	"github.com/diwan-editor/docsearch/internal/jobs"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/internal/persistence"
)

type serveOptions struct {
	port    int
	indexes []string
}

// NewCmdServe returns the command running the HTTP search service.
func NewCmdServe(v *viper.Viper) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [--config docsearch.yaml]",
		Short: "Serve indexes over HTTP.",
		Long: heredoc.Doc(`
			Starts the search service. Indexes kept in storage are loaded at
			startup; --index imports a generated index file under a name.

			  docsearch serve --config docsearch.yaml
			  docsearch serve --port 9000 --index book=book/searchindex.js
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "YAML configuration file.")
	flags.IntVarP(&opts.port, "port", "p", 8080, "Port to listen on.")
	flags.StringArrayVar(&opts.indexes, "index", nil, "Import an index file at startup, as name=path. Repeatable.")
	_ = v.BindPFlag("config", flags.Lookup("config"))

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper, opts serveOptions) error {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	// the config file decides logging unless the flags say otherwise
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		level = v.GetString("logging.level")
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		format = v.GetString("logging.format")
	}
	logger.SetupWriter(cmd.ErrOrStderr(), level, format)
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prom *metrics.Metrics
	if cfg.Metrics.Enabled {
		prom = metrics.New()
	}

	storage, err := persistence.OpenStorage(cfg.Storage.Engine, cfg.Storage.Path, cfg.Storage.Timeout)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Engine, err)
	}

	jobManager := jobs.NewManager(cfg.Jobs.Workers, jobs.WithMaxAge(cfg.Jobs.MaxAge), jobs.WithPrometheus(prom))
	jobManager.Start()
	queryCache := cache.Open(ctx, cfg.Redis, prom)

	eng, err := engine.New(
		engine.WithStorage(storage),
		engine.WithJobManager(jobManager),
		engine.WithCache(queryCache),
		engine.WithMetrics(prom),
	)
	if err != nil {
		jobManager.Stop()
		_ = queryCache.Close()
		_ = storage.Close()
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("closing engine", "error", err)
		}
	}()

	for _, spec := range opts.indexes {
		if err := importIndexFile(eng, spec); err != nil {
			return err
		}
		log.Info("imported index", "index", spec)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, eng, api.Options{
		Metrics:      prom,
		MetricsPath:  cfg.Metrics.Path,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Defaults:     &cfg.Defaults,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "storage", cfg.Storage.Engine, "indexes", len(eng.ListIndexes()))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// importIndexFile loads "name=path" into eng.
func importIndexFile(eng *engine.Engine, spec string) error {
	name, path, ok := strings.Cut(spec, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("invalid --index %q, want name=path", spec)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := eng.ImportIndex(name, data); err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	return nil
}
