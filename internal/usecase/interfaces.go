package usecase

import (
	"context"

	"github.com/xavierca1/ligue-inference/internal/entity"
	"github.com/xavierca1/ligue-inference/internal/infra/integration/semantic"
	"github.com/xavierca1/ligue-inference/internal/infra/queue"
)

type ConversationRepositoryInterface interface {
	// ResolveOrCreate devolve a conversa existente sem alterá-la, ou cria
	// lead + conversa atomicamente quando o id não existe / não foi enviado.
	ResolveOrCreate(ctx context.Context, clientID string, conversationID *string) (*entity.Conversation, error)

	// AppendTurn grava a sequência COMPLETA (read-modify-write do chamador)
	// e recalcula os contadores a partir dela. A escrita é condicional ao
	// total que o chamador leu (expectedTotal); se outro turno gravou no
	// meio, devolve entity.ErrConversationConflict para o chamador reler
	// e reaplicar.
	AppendTurn(ctx context.Context, conversationID string, messages []entity.Message, summary *string, expectedTotal int) error

	// FindByID devolve (nil, nil) quando a conversa não existe.
	FindByID(ctx context.Context, conversationID string) (*entity.Conversation, error)
}

type PromptRepositoryInterface interface {
	ResolveSystemPrompt(ctx context.Context, clientID, slug string) (string, error)
}

type CatalogRepositoryInterface interface {
	Catalogs(ctx context.Context) (entity.Catalog, error)
}

type LeadRepositoryInterface interface {
	// MergeScoring escreve sempre os cinco scores e só inclui os campos
	// extraídos não-nulos no write set. Devolve o lead atualizado.
	MergeScoring(ctx context.Context, leadID string, result entity.ScoringResult) (*entity.Lead, error)
}

type ContextRetriever interface {
	Search(ctx context.Context, input semantic.SearchInput) ([]semantic.Document, error)
}

// Generator é a capacidade de geração de texto (uma tentativa, sem retry).
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []entity.Message, input string) (string, error)
}

// StructuredGenerator devolve JSON bruto para saída estruturada.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

type AnalysisDispatcherInterface interface {
	PublishAnalysis(ctx context.Context, payload queue.AnalysisPayload) error
}
