package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xavierca1/ligue-inference/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-inference/internal/usecase"
)

type ChatHandler struct {
	ChatTurnUseCase *usecase.ChatTurnUseCase
	rateLimiter     *RateLimiter
}

func NewChatHandler(uc *usecase.ChatTurnUseCase) *ChatHandler {
	return &ChatHandler{
		ChatTurnUseCase: uc,
		rateLimiter:     NewRateLimiter(30, time.Minute), // 30 turnos/min por IP
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Handle é o endpoint principal do bot: busca semântica + geração +
// persistência do turno. Falha técnica vira UM erro genérico; detalhe
// fica só no log.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{"Too many requests. Please try again later."})
		return
	}

	var input usecase.ChatTurnInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Invalid JSON"})
		return
	}

	output, err := h.ChatTurnUseCase.Execute(r.Context(), input)
	if err != nil {
		if usecase.IsDomainError(err) {
			middleware.RecordTurn("rejected")
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{err.Error()})
			return
		}
		middleware.RecordTurn("failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Internal server error"})
		return
	}

	middleware.RecordTurn("ok")
	writeJSON(w, http.StatusOK, output)
}

// HandleGetHistory devolve o transcript completo; conversa inexistente
// vira lista vazia.
func (h *ChatHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if _, err := uuid.Parse(conversationID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"conversation_id must be a valid UUID"})
		return
	}

	messages, err := h.ChatTurnUseCase.GetConversationHistory(r.Context(), conversationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
