package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-inference/internal/entity"
	"github.com/xavierca1/ligue-inference/internal/infra/http/middleware"
)

// LeadScorer é o analyzer visto pelo worker. Nunca devolve erro: falha
// interna vira resultado neutro de fallback.
type LeadScorer interface {
	Analyze(ctx context.Context, history []entity.Message, catalogs entity.Catalog) entity.ScoringResult
}

type LeadStore interface {
	MergeScoring(ctx context.Context, leadID string, result entity.ScoringResult) (*entity.Lead, error)
}

type HotLeadNotifier interface {
	SendHotLeadAlert(lead *entity.Lead, reasoning string) error
}

// Worker consome a fila de análise com concorrência limitada: o Qos do
// canal e o número de goroutines são o mesmo valor, então nunca há mais
// análises em voo do que o configurado — mesmo sob pico de turnos.
type Worker struct {
	Channel     *amqp.Channel
	Analyzer    LeadScorer
	Leads       LeadStore
	Notifier    HotLeadNotifier
	Concurrency int

	// Threshold do score total para alerta de lead quente.
	HotThreshold int

	alertedMu sync.Mutex
	alerted   map[string]bool
}

func NewWorker(ch *amqp.Channel, analyzer LeadScorer, leads LeadStore, notifier HotLeadNotifier, concurrency, hotThreshold int) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Worker{
		Channel:      ch,
		Analyzer:     analyzer,
		Leads:        leads,
		Notifier:     notifier,
		Concurrency:  concurrency,
		HotThreshold: hotThreshold,
		alerted:      map[string]bool{},
	}
}

func (w *Worker) Start(queueName string) {
	if err := w.Channel.Qos(w.Concurrency, 0, false); err != nil {
		log.Fatalf("❌ Falha ao configurar Qos: %s", err)
	}

	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	for i := 0; i < w.Concurrency; i++ {
		go w.consume(msgs)
	}

	log.Printf(" [*] Worker de análise rodando na fila '%s' (concorrência %d)", queueName, w.Concurrency)
}

func (w *Worker) consume(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		var payload AnalysisPayload
		if err := json.Unmarshal(d.Body, &payload); err != nil {
			log.Printf("❌ [WORKER] JSON inválido, mandando pra DLQ: %s", err)
			middleware.RecordAnalysis("invalid_payload")
			d.Nack(false, false)
			continue
		}

		if err := w.processMessage(context.Background(), payload); err != nil {
			log.Printf("❌ [WORKER] Falha ao aplicar análise do lead %s: %s", payload.LeadID, err)
			middleware.RecordAnalysis("merge_failed")
			d.Nack(false, false)
			continue
		}

		middleware.RecordAnalysis("ok")
		d.Ack(false)
	}
}

func (w *Worker) processMessage(ctx context.Context, payload AnalysisPayload) error {
	// O analyzer isola as próprias falhas; daqui pra frente só a escrita
	// no banco pode dar errado.
	result := w.Analyzer.Analyze(ctx, payload.History, payload.Catalogs)

	lead, err := w.Leads.MergeScoring(ctx, payload.LeadID, result)
	if err != nil {
		return err
	}

	log.Printf("✅ [WORKER] Lead %s pontuado (total %d): %s", lead.ID, lead.TotalScore(), result.Reasoning)

	w.maybeNotifyHotLead(lead, result.Reasoning)
	return nil
}

// maybeNotifyHotLead alerta o time comercial na primeira vez que o lead
// cruza o threshold. Best-effort: falha de email só loga.
func (w *Worker) maybeNotifyHotLead(lead *entity.Lead, reasoning string) {
	if w.Notifier == nil || lead.TotalScore() < w.HotThreshold {
		return
	}

	w.alertedMu.Lock()
	already := w.alerted[lead.ID]
	w.alerted[lead.ID] = true
	w.alertedMu.Unlock()
	if already {
		return
	}

	if err := w.Notifier.SendHotLeadAlert(lead, reasoning); err != nil {
		log.Printf("⚠️ [WORKER] Falha ao enviar alerta de lead quente %s: %v", lead.ID, err)
		return
	}
	middleware.RecordHotLeadAlert()
}
