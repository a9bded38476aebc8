package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-inference/internal/entity"
	"github.com/xavierca1/ligue-inference/internal/infra/integration/semantic"
	"github.com/xavierca1/ligue-inference/internal/infra/queue"
)

const (
	// Janela de histórico enviada ao modelo. O histórico completo continua
	// sendo persistido e enviado ao analyzer.
	historyWindow = 10

	retrievalTopK    = 3
	retrievalTimeout = 10 * time.Second

	promptSlug = "primary_chat"

	contextPlaceholder = "{context_text}"

	// Quantas vezes um turno pode reler e reaplicar o par depois de um
	// conflito de escrita concorrente antes de desistir.
	appendConflictRetries = 3
)

type ChatTurnUseCase struct {
	ConvRepo    ConversationRepositoryInterface
	PromptRepo  PromptRepositoryInterface
	CatalogRepo CatalogRepositoryInterface
	Retriever   ContextRetriever
	LLM         Generator
	Queue       AnalysisDispatcherInterface
}

func NewChatTurnUseCase(
	convRepo ConversationRepositoryInterface,
	promptRepo PromptRepositoryInterface,
	catalogRepo CatalogRepositoryInterface,
	retriever ContextRetriever,
	llm Generator,
	producer AnalysisDispatcherInterface,
) *ChatTurnUseCase {
	return &ChatTurnUseCase{
		ConvRepo:    convRepo,
		PromptRepo:  promptRepo,
		CatalogRepo: catalogRepo,
		Retriever:   retriever,
		LLM:         llm,
		Queue:       producer,
	}
}

// Execute roda um turno completo: resolve conversa → busca contexto →
// resolve prompt → gera → persiste → despacha análise → responde.
// Só a busca de contexto é tolerante a falha; o resto derruba o turno inteiro.
func (uc *ChatTurnUseCase) Execute(ctx context.Context, input ChatTurnInput) (*ChatTurnOutput, error) {
	validationErrors := ValidateChatTurnInput(input)
	if len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for _, e := range validationErrors {
			errMsg += e.Field + " (" + e.Message + "), "
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: errMsg,
		}
	}

	receivedAt := time.Now()

	conversation, err := uc.ConvRepo.ResolveOrCreate(ctx, input.ClientID, input.ConversationID)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "CONVERSATION_BOOTSTRAP_FAILED",
			Message: "failed to resolve conversation: " + err.Error(),
			Err:     err,
		}
	}

	// Contexto semântico: best-effort. Timeout ou erro viram contexto vazio,
	// nunca falha do turno.
	docs := uc.retrieveContext(ctx, input.QueryText, input.ClientID)

	promptTemplate, err := uc.PromptRepo.ResolveSystemPrompt(ctx, input.ClientID, promptSlug)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "PROMPT_RESOLUTION_FAILED",
			Message: "failed to resolve system prompt: " + err.Error(),
			Err:     err,
		}
	}

	systemPrompt := strings.ReplaceAll(promptTemplate, contextPlaceholder, BuildContextText(docs))

	answer, err := uc.LLM.Generate(ctx, systemPrompt, entity.TailMessages(conversation.Messages, historyWindow), input.QueryText)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "GENERATION_FAILED",
			Message: "failed to generate answer: " + err.Error(),
			Err:     err,
		}
	}

	userMessage := entity.Message{Role: entity.RoleUser, Content: input.QueryText, Timestamp: receivedAt}
	botMessage := entity.Message{Role: entity.RoleAssistant, Content: answer, Timestamp: time.Now()}

	newHistory, err := uc.persistTurn(ctx, conversation, userMessage, botMessage)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "PERSISTENCE_FAILED",
			Message: "failed to persist conversation turn: " + err.Error(),
			Err:     err,
		}
	}

	// A resposta volta ao usuário sem esperar a análise: o despacho é
	// fire-and-forget via fila, e qualquer falha aqui é absorvida porque
	// o turno já está commitado.
	uc.dispatchAnalysis(ctx, conversation, newHistory)

	sources := make([]SourceDocument, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, SourceDocument{
			ContentID:   doc.ContentID,
			Title:       doc.Title,
			BodyContent: doc.BodyContent,
			Score:       doc.Score,
			Metadata:    doc.Metadata,
		})
	}

	return &ChatTurnOutput{
		Answer:         answer,
		Sources:        sources,
		ConversationID: conversation.ID,
	}, nil
}

// persistTurn fecha o read-modify-write do histórico. A escrita é
// condicional ao total lido; conflito significa que outro turno da mesma
// conversa gravou primeiro — relemos e reaplicamos o par em cima da
// sequência nova, sem regenerar a resposta.
func (uc *ChatTurnUseCase) persistTurn(ctx context.Context, conversation *entity.Conversation, userMessage, botMessage entity.Message) ([]entity.Message, error) {
	base := conversation.Messages
	expectedTotal := conversation.TotalMessages
	summary := conversation.Summary

	for attempt := 0; ; attempt++ {
		newHistory := append(append([]entity.Message{}, base...), userMessage, botMessage)

		err := uc.ConvRepo.AppendTurn(ctx, conversation.ID, newHistory, summary, expectedTotal)
		if err == nil {
			return newHistory, nil
		}
		if !errors.Is(err, entity.ErrConversationConflict) || attempt >= appendConflictRetries {
			return nil, err
		}

		log.Printf("⚠️ [CHAT] Escrita concorrente na conversa %s, relendo histórico (tentativa %d)", conversation.ID, attempt+1)
		fresh, findErr := uc.ConvRepo.FindByID(ctx, conversation.ID)
		if findErr != nil {
			return nil, findErr
		}
		if fresh == nil {
			return nil, fmt.Errorf("conversa %s sumiu durante o turno", conversation.ID)
		}
		base = fresh.Messages
		expectedTotal = fresh.TotalMessages
		summary = fresh.Summary
	}
}

func (uc *ChatTurnUseCase) retrieveContext(ctx context.Context, query, clientID string) []semantic.Document {
	searchCtx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	docs, err := uc.Retriever.Search(searchCtx, semantic.SearchInput{
		QueryText: query,
		ClientID:  clientID,
		TopK:      retrievalTopK,
	})
	if err != nil {
		log.Printf("⚠️ [CHAT] Busca semântica falhou, seguindo sem contexto: %v", err)
		return nil
	}
	return docs
}

func (uc *ChatTurnUseCase) dispatchAnalysis(ctx context.Context, conversation *entity.Conversation, history []entity.Message) {
	if conversation.LeadID == "" {
		return
	}

	catalogs, err := uc.CatalogRepo.Catalogs(ctx)
	if err != nil {
		log.Printf("⚠️ [CHAT] Falha ao carregar catálogos, análise não despachada: %v", err)
		return
	}

	payload := queue.AnalysisPayload{
		LeadID:         conversation.LeadID,
		ConversationID: conversation.ID,
		History:        history,
		Catalogs:       catalogs,
	}

	if err := uc.Queue.PublishAnalysis(ctx, payload); err != nil {
		log.Printf("❌ [CHAT] Falha ao publicar análise do lead %s: %v", conversation.LeadID, err)
	}
}

// BuildContextText monta o bloco de fontes numeradas que substitui
// {context_text} no prompt de sistema.
func BuildContextText(docs []semantic.Document) string {
	if len(docs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("Source %d: %s", i+1, doc.BodyContent))
	}
	return strings.Join(parts, "\n\n")
}

// GetConversationHistory devolve o transcript ordenado; conversa
// inexistente vira lista vazia, não erro.
func (uc *ChatTurnUseCase) GetConversationHistory(ctx context.Context, conversationID string) ([]entity.Message, error) {
	conversation, err := uc.ConvRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "HISTORY_READ_FAILED",
			Message: "failed to read conversation history: " + err.Error(),
			Err:     err,
		}
	}
	if conversation == nil {
		return []entity.Message{}, nil
	}
	return conversation.Messages, nil
}
