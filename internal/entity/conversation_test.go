package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountMessages(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "Hola"},
		{Role: RoleAssistant, Content: "¡Hola! ¿En qué puedo ayudarte?"},
		{Role: RoleUser, Content: "Quiero un departamento"},
	}

	counts := CountMessages(messages)

	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.FromLead)
	assert.Equal(t, 1, counts.FromBot)
}

func TestCountMessagesEmpty(t *testing.T) {
	counts := CountMessages(nil)
	assert.Equal(t, 0, counts.Total)
	assert.Equal(t, 0, counts.FromLead)
	assert.Equal(t, 0, counts.FromBot)
}

// Revisões antigas gravaram "text" no lugar de "content"; a borda do
// banco precisa aceitar os dois sem vazar a ambiguidade pra cima.
func TestMessageUnmarshalLegacyTextKey(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"role":"user","text":"mensaje viejo","timestamp":"2024-03-01T10:00:00Z"}`), &msg)

	assert.NoError(t, err)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "mensaje viejo", msg.Content)
}

// Conversas antigas têm timestamp no formato do serviço anterior
// ("2025-11-20 10:30:00.123456"); a leitura do banco precisa aceitá-lo.
func TestMessageUnmarshalLegacyTimestamp(t *testing.T) {
	var msgs []Message
	err := json.Unmarshal([]byte(`[{"role":"user","content":"hola","timestamp":"2025-11-20 10:30:00.123456"}]`), &msgs)

	assert.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, 2025, msgs[0].Timestamp.Year())
	assert.Equal(t, time.Month(11), msgs[0].Timestamp.Month())
	assert.Equal(t, 123456000, msgs[0].Timestamp.Nanosecond())
}

func TestMessageUnmarshalRFC3339Timestamp(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"role":"user","content":"hola","timestamp":"2024-03-01T10:00:00.5Z"}`), &msg)

	assert.NoError(t, err)
	assert.Equal(t, 2024, msg.Timestamp.Year())
	assert.Equal(t, 500000000, msg.Timestamp.Nanosecond())
}

func TestMessageUnmarshalTimestampEdgeCases(t *testing.T) {
	var msg Message

	// Ausente vira zero value, não erro.
	assert.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hola"}`), &msg))
	assert.True(t, msg.Timestamp.IsZero())

	// Irreconhecível é erro, não silêncio.
	err := json.Unmarshal([]byte(`{"role":"user","content":"hola","timestamp":"ayer"}`), &msg)
	assert.Error(t, err)
}

func TestMessageUnmarshalContentWinsOverText(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"role":"assistant","content":"nuevo","text":"viejo"}`), &msg)

	assert.NoError(t, err)
	assert.Equal(t, "nuevo", msg.Content)
}

func TestMessageValidate(t *testing.T) {
	valid := Message{Role: RoleUser, Content: "hola", Timestamp: time.Now()}
	assert.NoError(t, valid.Validate())

	badRole := Message{Role: "system", Content: "hola"}
	assert.Error(t, badRole.Validate())

	empty := Message{Role: RoleUser}
	assert.Error(t, empty.Validate())
}

func TestTailMessages(t *testing.T) {
	messages := make([]Message, 25)
	for i := range messages {
		messages[i] = Message{Role: RoleUser, Content: "m"}
	}

	assert.Len(t, TailMessages(messages, 10), 10)
	assert.Len(t, TailMessages(messages[:5], 10), 5)
	assert.Len(t, TailMessages(nil, 10), 0)

	// A janela devolve o FINAL do histórico.
	tagged := []Message{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	tail := TailMessages(tagged, 2)
	assert.Equal(t, "b", tail[0].Content)
	assert.Equal(t, "c", tail[1].Content)
}

func TestNewConversationRequiresLead(t *testing.T) {
	_, err := NewConversation("", "")
	assert.Error(t, err)

	conversation, err := NewConversation("", "lead-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, conversation.ID)
	assert.Equal(t, "lead-1", conversation.LeadID)
	assert.Equal(t, PlatformWebchat, conversation.Platform)
	assert.Empty(t, conversation.Messages)
}
