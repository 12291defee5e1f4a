package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	redisstore "adaptive-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewCleanupCmd sweeps abandoned sessions from the backing store.
func NewCleanupCmd(configPath *string) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale incomplete sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context(), *configPath, olderThan)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "delete incomplete sessions started before now minus this duration")
	return cmd
}

func runCleanup(ctx context.Context, configPath string, olderThan time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var sessions app.SessionStore
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sessions = pgstore.NewSessionStore(pool)
	case cfg.Redis.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		sessionTTL := config.TTLDuration(cfg.Redis.SessionTTL, 24*time.Hour)
		sessions = redisstore.NewSessionStore(client, sessionTTL)
	default:
		return fmt.Errorf("cleanup requires a postgres or redis backend")
	}

	removed, err := sessions.DeleteStale(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	log.Printf("removed %d stale sessions", removed)
	return nil
}
