package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

// AnalysisPayload carrega tudo que o worker precisa para analisar um
// lead: o histórico completo já atualizado e o snapshot dos catálogos
// do momento do despacho. O worker não relê a conversa.
type AnalysisPayload struct {
	LeadID         string           `json:"lead_id"`
	ConversationID string           `json:"conversation_id"`
	History        []entity.Message `json:"history"`
	Catalogs       entity.Catalog   `json:"catalogs"`
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishAnalysis(ctx context.Context, payload AnalysisPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}

	return nil
}
