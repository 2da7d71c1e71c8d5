// Command congress-cli streams Congress.gov entities as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/congress-api-client/internal/config"
	"github.com/Sternrassler/congress-api-client/pkg/client"
	"github.com/Sternrassler/congress-api-client/pkg/congress"
	"github.com/Sternrassler/congress-api-client/pkg/logging"
	"github.com/Sternrassler/congress-api-client/pkg/metrics"
	"github.com/Sternrassler/congress-api-client/pkg/pagination"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	service *congress.Service
	logger  zerolog.Logger
	redis   *redis.Client
	out     io.Writer
}

type rootFlags struct {
	configFile  string
	logLevel    string
	metricsAddr string
	redisAddr   string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var (
		flags rootFlags
		a     = &app{out: out}
	)

	root := &cobra.Command{
		Use:           "congress-cli",
		Short:         "Stream Congress.gov API entities as JSON lines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), flags, errOut)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (env CONGRESS_* overrides it)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	root.PersistentFlags().StringVar(&flags.redisAddr, "redis-addr", "", "Redis address for resumable traversals")

	root.AddCommand(newListCmd(a), newGetCmd(a))
	return root
}

func (a *app) setup(ctx context.Context, flags rootFlags, errOut io.Writer) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		if _, err := logging.ParseLevel(flags.logLevel); err != nil {
			return err
		}
		cfg.LogLevel = flags.logLevel
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if flags.redisAddr != "" {
		cfg.RedisAddr = flags.redisAddr
	}
	a.cfg = cfg

	logCfg := cfg.LoggingConfig()
	logCfg.Output = errOut
	logging.Setup(logCfg)
	a.logger = logging.NewLogger("congress-cli")

	if cfg.MetricsAddr != "" {
		if _, err := metrics.Serve(ctx, cfg.MetricsAddr, a.logger); err != nil {
			return err
		}
	}

	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	svcCfg := cfg.ServiceConfig()

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis cursor store")
		svcCfg.Store = pagination.NewRedisCursorStore(a.redis, cfg.CursorTTL)
	}

	a.service = congress.NewService(c, svcCfg, logging.NewLogger("congress"))
	return nil
}

func (a *app) close() error {
	if a.redis == nil {
		return nil
	}
	err := a.redis.Close()
	a.redis = nil
	return err
}

// writeJSONLine encodes v as one compact JSON line.
func (a *app) writeJSONLine(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
