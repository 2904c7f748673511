// Package stages parses stage authority command flags and starts the
// runtime.
package stages

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/gamestages/internal/platform/cmd"
	"github.com/louisbranch/gamestages/internal/services/stages/app"
)

// Config holds stage authority command configuration.
type Config struct {
	StoragePath     string `env:"GAMESTAGES_DB_PATH"      envDefault:"gamestages.db"`
	KnownStagesPath string `env:"GAMESTAGES_KNOWN_PATH"`
	PolicyDir       string `env:"GAMESTAGES_POLICY_DIR"`
	RedisAddr       string `env:"GAMESTAGES_REDIS_ADDR"`
	Instance        string `env:"GAMESTAGES_INSTANCE"     envDefault:"default"`
	HealthAddr      string `env:"GAMESTAGES_HEALTH_ADDR"  envDefault:"localhost:8090"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.StoragePath, "db", cfg.StoragePath, "SQLite database path for stage records")
	fs.StringVar(&cfg.KnownStagesPath, "known", cfg.KnownStagesPath, "JSON file of registered stage names")
	fs.StringVar(&cfg.PolicyDir, "policies", cfg.PolicyDir, "Directory of Lua policy scripts")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for snapshot propagation (empty disables)")
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "Instance name for the propagation channel")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address (empty disables)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the stage authority service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStages, func(ctx context.Context) error {
		return app.Run(ctx, app.Options{
			StoragePath:     cfg.StoragePath,
			KnownStagesPath: cfg.KnownStagesPath,
			PolicyDir:       cfg.PolicyDir,
			RedisAddr:       cfg.RedisAddr,
			Instance:        cfg.Instance,
			HealthAddr:      cfg.HealthAddr,
		})
	})
}
