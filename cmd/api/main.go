package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-inference/internal/infra/database"
	"github.com/xavierca1/ligue-inference/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-inference/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-inference/internal/infra/integration/gemini"
	"github.com/xavierca1/ligue-inference/internal/infra/integration/semantic"
	"github.com/xavierca1/ligue-inference/internal/infra/mail"
	"github.com/xavierca1/ligue-inference/internal/infra/queue"
	"github.com/xavierca1/ligue-inference/internal/infra/worker"
	"github.com/xavierca1/ligue-inference/internal/usecase"
)

func main() {
	godotenv.Load()
	ctx := context.Background()

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		os.Getenv("RABBITMQ_USER"), os.Getenv("RABBITMQ_PASS"),
		os.Getenv("RABBITMQ_HOST"), os.Getenv("RABBITMQ_PORT"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositórios
	policy, err := database.ParseLeadBootstrapPolicy(os.Getenv("LEAD_BOOTSTRAP_POLICY"))
	if err != nil {
		log.Fatal(err)
	}
	convRepo := database.NewConversationRepository(db, policy)
	leadRepo := database.NewLeadRepository(db)
	promptRepo := database.NewPromptRepository(db)
	catalogRepo := database.NewCatalogRepository(db)

	// 2. Colaboradores externos
	retriever := semantic.NewClient(os.Getenv("SEMANTIC_ADAPTER_URL"))
	llm, err := gemini.NewClient(ctx, os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatal(err)
	}

	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	var notifier queue.HotLeadNotifier
	if alertTo := os.Getenv("HOT_LEAD_ALERT_TO"); alertTo != "" {
		notifier = mail.NewEmailSender(
			os.Getenv("MAIL_HOST"), 587, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"), alertTo,
		)
	}

	// 3. Worker de análise (consome a fila com concorrência limitada)
	analyzer := usecase.NewLeadAnalyzer(llm)
	analysisWorker := queue.NewWorker(
		rabbitMQ.Ch, analyzer, leadRepo, notifier,
		envInt("ANALYSIS_PREFETCH", 4),
		envInt("HOT_LEAD_THRESHOLD", 70),
	)
	analysisWorker.Start(queue.QueueName)

	// 4. Worker de rescore (republica análises perdidas)
	rescoreWorker := worker.NewRescoreWorker(db, convRepo, catalogRepo, producer)
	go rescoreWorker.Start(ctx)

	// 5. UseCases
	chatTurnUC := usecase.NewChatTurnUseCase(convRepo, promptRepo, catalogRepo, retriever, llm, producer)

	// 6. Handlers
	chatHandler := handlers.NewChatHandler(chatTurnUC)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	r.Post("/api/v1/chat", chatHandler.Handle)
	r.Get("/api/v1/chat/{conversationID}", chatHandler.HandleGetHistory)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":8001"
	if p := os.Getenv("PORT"); p != "" {
		port = ":" + p
	}
	log.Printf("🔥 Server ligue-inference rodando na porta %s", port)
	http.ListenAndServe(port, r)
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("❌ %s inválido: %q", key, raw)
	}
	return value
}
