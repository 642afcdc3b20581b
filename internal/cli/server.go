package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	pgloader "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// sweeper removes sessions idle longer than maxIdle; both registry
// implementations satisfy it.
type sweeper interface {
	Sweep(maxIdle time.Duration) []string
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleBank())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bank app.QuizRepository
	if redisClient != nil {
		bank = redisinfra.NewQuizRepository(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewQuizRepository(loader, bankTTL)
	}

	var registry app.SessionRegistry
	var sweep sweeper
	if redisClient != nil {
		store := redisinfra.NewSessionStore(redisClient, redisTTL)
		registry, sweep = store, store
	} else {
		store := memory.NewSessionStore()
		registry, sweep = store, store
	}
	service := app.NewQuizService(registry, bank)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("GET /sessions/{code}/watch", wsHandler.ServeWatch)

	if sessionTTL := config.TTLDuration(cfg.Session.TTL, 0); sessionTTL > 0 {
		go runJanitor(ctx, sweep, sessionTTL)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting livequiz service on :%s", finalPort)
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

// runJanitor sweeps abandoned sessions. Eviction is policy layered outside
// the engine; the engine only reports last activity.
func runJanitor(ctx context.Context, sweep sweeper, maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := sweep.Sweep(maxIdle); len(removed) > 0 {
				log.Printf("swept %d idle sessions: %v", len(removed), removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// sampleBank provides demo quizzes for running without Postgres.
func sampleBank() map[string]domain.QuizTemplate {
	return map[string]domain.QuizTemplate{
		"arithmetic-1": {
			ID:                 "arithmetic-1",
			Title:              "Quick Arithmetic",
			SecondsPerQuestion: 20,
			Questions: []domain.QuestionInput{
				{
					Text:    "What is 2 + 2?",
					A:       "3",
					B:       "4",
					C:       "5",
					D:       "6",
					Correct: domain.OptionB,
				},
				{
					Text:    "What is 9 x 7?",
					A:       "63",
					B:       "56",
					C:       "72",
					D:       "67",
					Correct: domain.OptionA,
				},
			},
		},
	}
}
