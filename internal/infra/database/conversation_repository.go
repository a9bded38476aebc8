package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-inference/internal/entity"
)

var ErrConversationNotFound = errors.New("conversation not found")

// LeadBootstrapPolicy decide o que fazer quando chega um turno sem
// conversation_id: reaproveitar um lead existente do cliente ou sempre
// criar um novo. As duas revisões do produto divergem; a escolha fica
// explícita na configuração em vez de enterrada no código.
type LeadBootstrapPolicy string

const (
	LeadPolicyReuseExisting LeadBootstrapPolicy = "reuse_existing"
	LeadPolicyAlwaysNew     LeadBootstrapPolicy = "always_new"
)

func ParseLeadBootstrapPolicy(raw string) (LeadBootstrapPolicy, error) {
	switch LeadBootstrapPolicy(raw) {
	case LeadPolicyReuseExisting, LeadPolicyAlwaysNew:
		return LeadBootstrapPolicy(raw), nil
	case "":
		return LeadPolicyReuseExisting, nil
	default:
		return "", fmt.Errorf("lead bootstrap policy inválida: %q", raw)
	}
}

type ConversationRepository struct {
	DB     *sql.DB
	Policy LeadBootstrapPolicy

	writeLocks keyedMutex
}

func NewConversationRepository(db *sql.DB, policy LeadBootstrapPolicy) *ConversationRepository {
	return &ConversationRepository{DB: db, Policy: policy}
}

// ResolveOrCreate: id existente devolve o registro intacto (nenhum lead
// novo é criado). Caso contrário cria lead + conversa numa transação só.
func (r *ConversationRepository) ResolveOrCreate(ctx context.Context, clientID string, conversationID *string) (*entity.Conversation, error) {
	if conversationID != nil {
		conversation, err := r.FindByID(ctx, *conversationID)
		if err != nil {
			return nil, err
		}
		if conversation != nil {
			return conversation, nil
		}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	leadID, err := r.resolveLead(ctx, tx, clientID)
	if err != nil {
		return nil, err
	}

	newID := uuid.New().String()
	if conversationID != nil {
		newID = *conversationID
	}

	conversation, err := entity.NewConversation(newID, leadID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO lead_conversations (id, lead_id, platform, messages, total_messages, lead_messages, bot_messages, created_at, updated_at)
		VALUES ($1, $2, $3, '[]'::jsonb, 0, 0, 0, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query,
		conversation.ID,
		conversation.LeadID,
		conversation.Platform,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("erro ao criar conversa: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("erro ao commitar bootstrap: %w", err)
	}

	return conversation, nil
}

func (r *ConversationRepository) resolveLead(ctx context.Context, tx *sql.Tx, clientID string) (string, error) {
	if r.Policy == LeadPolicyReuseExisting {
		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM lead_leads WHERE client_id = $1 ORDER BY created_at LIMIT 1`,
			clientID,
		).Scan(&existingID)
		if err == nil {
			return existingID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("erro ao buscar lead do cliente: %w", err)
		}
	}

	lead := entity.NewLead(clientID)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO lead_leads (id, client_id, source_id, full_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		lead.ID, lead.ClientID, lead.SourceID, lead.FullName, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("erro ao criar lead: %w", err)
	}
	return lead.ID, nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	query := `
		SELECT id, lead_id, platform, messages, summary, total_messages, lead_messages, bot_messages, created_at, updated_at, last_message_at
		FROM lead_conversations
		WHERE id = $1
	`

	var conversation entity.Conversation
	var rawMessages []byte

	err := r.DB.QueryRowContext(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.LeadID,
		&conversation.Platform,
		&rawMessages,
		&conversation.Summary,
		&conversation.TotalMessages,
		&conversation.LeadMessages,
		&conversation.BotMessages,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.LastMessageAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar conversa: %w", err)
	}

	// O Unmarshal de Message normaliza o formato legado ("text").
	if err := json.Unmarshal(rawMessages, &conversation.Messages); err != nil {
		return nil, fmt.Errorf("erro ao decodificar mensagens: %w", err)
	}

	return &conversation, nil
}

// AppendTurn substitui a sequência inteira e recalcula os contadores.
// Dois turnos concorrentes na mesma conversa não podem se sobrescrever:
// o lock por chave serializa escritores deste processo, e a condição em
// total_messages fecha o lost update também entre processos — a leitura
// que gerou a sequência aconteceu bem antes, fora do lock.
func (r *ConversationRepository) AppendTurn(ctx context.Context, conversationID string, messages []entity.Message, summary *string, expectedTotal int) error {
	unlock := r.writeLocks.Lock(conversationID)
	defer unlock()

	for i := range messages {
		if err := messages[i].Validate(); err != nil {
			return fmt.Errorf("mensagem %d inválida: %w", i, err)
		}
	}

	rawMessages, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("erro ao serializar mensagens: %w", err)
	}

	counts := entity.CountMessages(messages)
	now := time.Now()

	query := `
		UPDATE lead_conversations
		SET
			messages = $1,
			summary = $2,
			total_messages = $3,
			lead_messages = $4,
			bot_messages = $5,
			updated_at = $6,
			last_message_at = $7
		WHERE id = $8 AND total_messages = $9
	`

	result, err := r.DB.ExecContext(ctx, query,
		rawMessages,
		summary,
		counts.Total,
		counts.FromLead,
		counts.FromBot,
		now,
		now,
		conversationID,
		expectedTotal,
	)
	if err != nil {
		return fmt.Errorf("erro ao gravar turno: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var storedTotal int
		err := r.DB.QueryRowContext(ctx,
			`SELECT total_messages FROM lead_conversations WHERE id = $1`,
			conversationID,
		).Scan(&storedTotal)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		if err != nil {
			return fmt.Errorf("erro ao checar conversa após escrita vazia: %w", err)
		}
		return fmt.Errorf("conversa %s tem %d mensagens, turno esperava %d: %w",
			conversationID, storedTotal, expectedTotal, entity.ErrConversationConflict)
	}
	return nil
}
