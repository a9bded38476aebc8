package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/xavierca1/ligue-inference/internal/entity"
	"github.com/xavierca1/ligue-inference/internal/infra/queue"
)

type ConversationFinder interface {
	FindByID(ctx context.Context, conversationID string) (*entity.Conversation, error)
}

type CatalogSource interface {
	Catalogs(ctx context.Context) (entity.Catalog, error)
}

type AnalysisDispatcher interface {
	PublishAnalysis(ctx context.Context, payload queue.AnalysisPayload) error
}

// RescoreWorker varre conversas cujo último turno ficou sem análise
// aplicada (lead mais velho que a última mensagem além da janela de
// graça) e republica o job. Cobre mensagem perdida na fila ou worker
// derrubado no meio do processamento.
type RescoreWorker struct {
	db            *sql.DB
	conversations ConversationFinder
	catalogs      CatalogSource
	producer      AnalysisDispatcher

	graceWindow  time.Duration
	tickInterval time.Duration
}

func NewRescoreWorker(db *sql.DB, conversations ConversationFinder, catalogs CatalogSource, producer AnalysisDispatcher) *RescoreWorker {
	return &RescoreWorker{
		db:            db,
		conversations: conversations,
		catalogs:      catalogs,
		producer:      producer,
		graceWindow:   15 * time.Minute, // Análise normal chega bem antes disso
		tickInterval:  5 * time.Minute,
	}
}

func (w *RescoreWorker) Start(ctx context.Context) {
	log.Println("🕒 Rescore Worker iniciado (janela de graça 15min)")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.requeueStale(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Rescore Worker encerrado")
			return
		case <-ticker.C:
			w.requeueStale(ctx)
		}
	}
}

func (w *RescoreWorker) requeueStale(ctx context.Context) {
	query := `
		SELECT c.id, c.lead_id
		FROM lead_conversations c
		JOIN lead_leads l ON l.id = c.lead_id
		WHERE
			c.last_message_at IS NOT NULL
			AND c.last_message_at < NOW() - INTERVAL '15 minutes'
			AND c.last_message_at > l.updated_at
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		log.Printf("❌ Erro ao buscar conversas sem análise: %v", err)
		return
	}
	defer rows.Close()

	type stale struct{ conversationID, leadID string }
	var pending []stale

	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.conversationID, &s.leadID); err != nil {
			log.Printf("⚠️ Erro ao escanear conversa: %v", err)
			continue
		}
		pending = append(pending, s)
	}
	if err := rows.Err(); err != nil {
		log.Printf("⚠️ Erro ao iterar conversas: %v", err)
	}

	if len(pending) == 0 {
		return
	}

	catalogs, err := w.catalogs.Catalogs(ctx)
	if err != nil {
		log.Printf("❌ Erro ao carregar catálogos no rescore: %v", err)
		return
	}

	requeued := 0
	for _, s := range pending {
		conversation, err := w.conversations.FindByID(ctx, s.conversationID)
		if err != nil || conversation == nil {
			log.Printf("⚠️ Conversa %s sumiu durante o rescore: %v", s.conversationID, err)
			continue
		}

		payload := queue.AnalysisPayload{
			LeadID:         s.leadID,
			ConversationID: s.conversationID,
			History:        conversation.Messages,
			Catalogs:       catalogs,
		}
		if err := w.producer.PublishAnalysis(ctx, payload); err != nil {
			log.Printf("❌ Falha ao republicar análise da conversa %s: %v", s.conversationID, err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		log.Printf("✅ %d análise(s) republicada(s) pelo rescore", requeued)
	}
}
