package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/cache"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/server"
	"github.com/ppiankov/fieldscout/internal/store"
	"github.com/ppiankov/fieldscout/internal/worker"
)

var serveAddr string

// limiterIdle is how long a client's rate bucket survives without requests
const limiterIdle = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes retrieval, ranking, validation, synchronous fills and
asynchronous fill jobs over HTTP, with Prometheus metrics on /metrics.

Example:
  fieldscout serve --addr :8080
  FIELDSCOUT_STORE_DRIVER=sqlite FIELDSCOUT_STORE_DSN=jobs.db fieldscout serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	filler := pipeline.NewFiller(cfg,
		pipeline.WithLogger(log),
		pipeline.WithCache(cache.New(cfg.Cache), cfg.Cache.MemoryTTL),
		pipeline.WithFieldMemory(st),
	)
	// Jobs outlive the signal; the server drains them on shutdown
	dispatcher := worker.NewDispatcher(context.WithoutCancel(ctx), filler, st,
		cfg.Concurrency.JobWorkers, 0, log)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	go janitor(ctx, st, limiter, cfg.Store.JobTTL, log)

	srv := server.New(cfg.Server, filler, dispatcher, st, log,
		server.WithLimiter(limiter),
		server.WithVersion(Version),
	)
	return srv.Run(ctx)
}

// janitor expires finished SQLite jobs and idle rate-limit buckets. The
// memory store expires jobs on its own.
func janitor(ctx context.Context, st store.Store, limiter *worker.Limiter, ttl time.Duration, log *zap.Logger) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if sq, ok := st.(*store.SQLiteStore); ok && ttl > 0 {
			n, err := sq.DeleteExpired(ctx, ttl)
			if err != nil {
				log.Warn("expire jobs", zap.Error(err))
			} else if n > 0 {
				log.Info("expired jobs", zap.Int("count", n))
			}
		}
		if n := limiter.Forget(limiterIdle); n > 0 {
			log.Debug("forgot idle clients", zap.Int("count", n))
		}
	}
}
