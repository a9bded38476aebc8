package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	PlatformWebchat = "webchat"
)

// Message é imutável depois de gravada na conversa.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Timestamps legados foram gravados como str(datetime.now()), sem o "T"
// nem timezone do RFC3339.
const legacyTimestampLayout = "2006-01-02 15:04:05.999999"

// UnmarshalJSON aceita o formato legado ("text" no lugar de "content",
// timestamp sem RFC3339). A normalização acontece aqui, na borda do banco;
// o resto do código só enxerga Content e time.Time.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Content = raw.Content
	if m.Content == "" {
		m.Content = raw.Text
	}

	if raw.Timestamp == "" {
		m.Timestamp = time.Time{}
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		ts, err = time.Parse(legacyTimestampLayout, raw.Timestamp)
		if err != nil {
			return fmt.Errorf("timestamp de mensagem irreconhecível %q: %w", raw.Timestamp, err)
		}
	}
	m.Timestamp = ts
	return nil
}

func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return errors.New("message role must be user or assistant")
	}
	if m.Content == "" {
		return errors.New("message content is required")
	}
	return nil
}

// MessageCounts são os contadores denormalizados da conversa.
// Sempre recalculados a partir da sequência completa, nunca incrementados.
type MessageCounts struct {
	Total    int
	FromLead int
	FromBot  int
}

func CountMessages(messages []Message) MessageCounts {
	counts := MessageCounts{Total: len(messages)}
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			counts.FromLead++
		case RoleAssistant:
			counts.FromBot++
		}
	}
	return counts
}

// ErrConversationConflict: outro escritor gravou a conversa entre a
// leitura e a escrita deste turno. O chamador precisa reler e reaplicar.
var ErrConversationConflict = errors.New("conversation was modified concurrently")

// Entidade: Conversation (transcript ordenado, dono é sempre um Lead)
type Conversation struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"lead_id"`
	Platform      string     `json:"platform"`
	Messages      []Message  `json:"messages"`
	Summary       *string    `json:"summary,omitempty"`
	TotalMessages int        `json:"total_messages"`
	LeadMessages  int        `json:"lead_messages"`
	BotMessages   int        `json:"bot_messages"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Factory
func NewConversation(id, leadID string) (*Conversation, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if leadID == "" {
		return nil, errors.New("conversation requires a lead_id")
	}

	now := time.Now()
	return &Conversation{
		ID:        id,
		LeadID:    leadID,
		Platform:  PlatformWebchat,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TailMessages devolve a janela final do histórico usada na geração.
// O histórico completo continua sendo persistido integralmente.
func TailMessages(messages []Message, n int) []Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
