package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wierdbytes/tellm/cmd"
	"github.com/wierdbytes/tellm/internal/api"
	"github.com/wierdbytes/tellm/internal/bot"
	"github.com/wierdbytes/tellm/internal/chat"
	"github.com/wierdbytes/tellm/internal/database"
	"github.com/wierdbytes/tellm/internal/telegram"
)

type BotConfig struct {
	TelegramBotToken  string        `env:"TELEGRAM_BOT_TOKEN,notEmpty,required"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY,notEmpty,required"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	DatabasePath      string        `env:"DB_FILE" envDefault:"data/conversation.db"`
	AllowedChatIDs    []int64       `env:"ALLOWED_CHAT_IDS" envSeparator:","`
	PollTimeout       int           `env:"POLL_TIMEOUT" envDefault:"30"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"50s"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
	// APIPort enables the read-only ops HTTP surface when set.
	APIPort string `env:"API_PORT"`
}

func main() {
	log.Println("Starting tellm bot...")

	cmd.LoadEnvFile()

	var cfg BotConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	store := database.NewStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The request timeout must outlast the long-poll window, or getUpdates
	// would be cut off by our own client.
	if cfg.RequestTimeout <= time.Duration(cfg.PollTimeout)*time.Second {
		log.Fatalf("REQUEST_TIMEOUT (%v) must exceed POLL_TIMEOUT (%ds)", cfg.RequestTimeout, cfg.PollTimeout)
	}

	tg := telegram.NewClient("https://api.telegram.org/bot"+cfg.TelegramBotToken, cfg.RequestTimeout)

	// Resolved once before any update is accepted; mention detection cannot
	// function without the bot's own username.
	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve bot identity: %v", err)
	}
	log.Printf("bot identity resolved as @%s", me.Username)

	dispatcher := chat.NewDispatcher(chat.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.CompletionTimeout))
	b := bot.New(store, dispatcher, tg, me.Username, cfg.AllowedChatIDs)
	poller := bot.NewPoller(tg, b, cfg.PollTimeout)

	if cfg.APIPort != "" {
		go runOpsServer(ctx, cfg.APIPort, store)
	}

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Poller stopped with error: %v", err)
	}

	log.Println("Bot stopped.")
}

func runOpsServer(ctx context.Context, port string, store *database.Store) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET"},
	}))

	api.NewService(store).AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("ops server forced to shutdown: %v", err)
		}
	}()

	log.Printf("ops server listening on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("ops server stopped: %v", err)
	}
}
