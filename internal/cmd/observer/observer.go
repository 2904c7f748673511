// Package observer parses observer command flags and starts the runtime.
package observer

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/gamestages/internal/platform/cmd"
	"github.com/louisbranch/gamestages/internal/services/observer/app"
)

// Config holds observer command configuration.
type Config struct {
	RedisAddr  string `env:"GAMESTAGES_REDIS_ADDR"  envDefault:"localhost:6379"`
	Instance   string `env:"GAMESTAGES_INSTANCE"    envDefault:"default"`
	WatchKind  string `env:"GAMESTAGES_WATCH_KIND"  envDefault:"persistent"`
	WatchKey   string `env:"GAMESTAGES_WATCH_KEY"`
	HealthAddr string `env:"GAMESTAGES_HEALTH_ADDR" envDefault:"localhost:8091"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for snapshot propagation")
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "Instance name for the propagation channel")
	fs.StringVar(&cfg.WatchKind, "watch-kind", cfg.WatchKind, "Identity kind to mirror (persistent or ephemeral)")
	fs.StringVar(&cfg.WatchKey, "watch-key", cfg.WatchKey, "Identity key to mirror")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address (empty disables)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the observer service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceObserver, func(ctx context.Context) error {
		return app.Run(ctx, app.Options{
			RedisAddr:  cfg.RedisAddr,
			Instance:   cfg.Instance,
			WatchKind:  cfg.WatchKind,
			WatchKey:   cfg.WatchKey,
			HealthAddr: cfg.HealthAddr,
		})
	})
}
