package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	redisstore "adaptive-quiz-service/internal/infra/redis"
	transport "adaptive-quiz-service/internal/transport/http"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the adaptive quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.SessionTTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var bank app.QuestionBank = sampleBank()
	if pool != nil {
		bank = pgstore.NewQuestionBank(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if redisClient != nil {
		bank = redisstore.NewQuestionBank(redisClient, bank, bankTTL)
	} else {
		bank = memory.NewCachedBank(bank, bankTTL)
	}

	var recorder app.AttemptRecorder = memory.NewAttemptRecorder()
	var sessions app.SessionStore = memory.NewSessionStore()
	var trends app.TrendStore = memory.NewTrendStore()
	switch {
	case pool != nil:
		recorder = pgstore.NewAttemptRecorder(pool)
		sessions = pgstore.NewSessionStore(pool)
		trends = pgstore.NewTrendStore(pool)
	case redisClient != nil:
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
		trends = redisstore.NewTrendStore(redisClient)
	}

	ladder := domain.DefaultLadder()
	if cfg.Adaptive.LowThreshold > 0 {
		ladder.LowThreshold = cfg.Adaptive.LowThreshold
	}
	defaultSets := cfg.Adaptive.DefaultSets
	if defaultSets <= 0 {
		defaultSets = 3
	}

	service := app.NewSessionService(bank, recorder, sessions, trends, ladder)
	handler := transport.NewHandler(service, defaultSets)
	wsHandler := transport.NewWSHandler(service, defaultSets)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Mount("/api", handler.Routes())
	router.Get("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting adaptive quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBank seeds a minimal in-memory bank so the server runs without
// postgres; real deployments point the bank at the database.
func sampleBank() *memory.QuestionBank {
	bank := memory.NewQuestionBank()
	bank.AddTopic(domain.Topic{ID: "arithmetic", Name: "Arithmetic"})

	bank.AddSet(domain.QuestionSet{
		ID:           "arithmetic-easy",
		TopicID:      "arithmetic",
		Difficulty:   domain.Easy,
		MinQuestions: 2,
		MaxQuestions: 3,
	}, []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4", Marks: 1},
		{ID: "q2", Prompt: "What is 9 - 3?", Options: []string{"5", "6", "7"}, CorrectOption: "6", Marks: 1},
		{ID: "q3", Prompt: "What is 3 x 3?", Options: []string{"6", "9", "12"}, CorrectOption: "9", Marks: 1},
	})

	bank.AddSet(domain.QuestionSet{
		ID:           "arithmetic-medium",
		TopicID:      "arithmetic",
		Difficulty:   domain.Medium,
		MinQuestions: 2,
		MaxQuestions: 3,
	}, []domain.Question{
		{ID: "q4", Prompt: "What is 12 x 12?", Options: []string{"124", "144", "164"}, CorrectOption: "144", Marks: 2},
		{ID: "q5", Prompt: "What is 91 / 7?", Options: []string{"11", "12", "13"}, CorrectOption: "13", Marks: 2},
		{ID: "q6", Prompt: "What is 15% of 200?", Options: []string{"25", "30", "35"}, CorrectOption: "30", Marks: 2},
	})

	return bank
}
