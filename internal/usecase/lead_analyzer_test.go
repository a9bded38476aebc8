package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

// MockStructuredGenerator
type MockStructuredGenerator struct {
	mock.Mock

	lastUserPrompt string
}

func (m *MockStructuredGenerator) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	m.lastUserPrompt = userPrompt
	args := m.Called(ctx, systemPrompt, userPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func analyzerHistory() []entity.Message {
	return []entity.Message{
		{Role: entity.RoleUser, Content: "Quiero un depa, soy Ana, mi correo es ana@mail.com"},
		{Role: entity.RoleAssistant, Content: "¡Perfecto, Ana! Tenemos opciones desde S/250,000."},
	}
}

func TestAnalyzeParsesScoresAndExtraction(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	raw := []byte(`{
		"score_engagement": 25, "score_finance": 20, "score_timeline": 15, "score_match": 10, "score_info": 4,
		"reasoning": "Lead caliente con datos de contacto.",
		"extracted_name": "Ana Torres", "extracted_email": "ana@mail.com", "extracted_phone": null,
		"extracted_income": 8500, "extracted_debts": null,
		"extracted_currency": "PEN", "extracted_contact_way_id": 1
	}`)
	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	assert.Equal(t, 25, result.ScoreEngagement)
	assert.Equal(t, 20, result.ScoreFinance)
	assert.Equal(t, 15, result.ScoreTimeline)
	assert.Equal(t, 10, result.ScoreMatch)
	assert.Equal(t, 4, result.ScoreInfo)
	assert.Equal(t, "Lead caliente con datos de contacto.", result.Reasoning)
	assert.Equal(t, "Ana Torres", *result.ExtractedName)
	assert.Equal(t, "ana@mail.com", *result.ExtractedEmail)
	assert.Nil(t, result.ExtractedPhone)
	assert.Equal(t, 8500.0, *result.ExtractedIncome)
	assert.Equal(t, "PEN", *result.ExtractedCurrency)
	assert.Equal(t, 1, *result.ExtractedContactWayID)

	// O prompt do usuário leva catálogos e transcript rotulado.
	assert.Contains(t, llm.lastUserPrompt, "MONEDAS VÁLIDAS: PEN, USD")
	assert.Contains(t, llm.lastUserPrompt, "- 1: WhatsApp")
	assert.Contains(t, llm.lastUserPrompt, "Usuario: Quiero un depa")
	assert.Contains(t, llm.lastUserPrompt, "Asistente: ¡Perfecto, Ana!")
}

func TestAnalyzeOutOfRangeScoreFallsBack(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	raw := []byte(`{"score_engagement": 99, "score_finance": 0, "score_timeline": 0, "score_match": 0, "score_info": 0, "reasoning": "x"}`)
	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	assert.Equal(t, entity.NeutralScoringResult(), result)
}

func TestAnalyzeGeneratorErrorFallsBack(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("gemini timeout"))

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	assert.Equal(t, entity.FallbackReasoning, result.Reasoning)
	assert.Equal(t, 0, result.ScoreEngagement)
}

func TestAnalyzeMalformedJSONFallsBack(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return([]byte("claro, aquí está el JSON:"), nil)

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	assert.Equal(t, entity.NeutralScoringResult(), result)
}

func TestAnalyzeDiscardsExtractionOutsideCatalog(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	raw := []byte(`{
		"score_engagement": 10, "score_finance": 5, "score_timeline": 5, "score_match": 7, "score_info": 1,
		"reasoning": "ok",
		"extracted_currency": "BTC", "extracted_contact_way_id": 99
	}`)
	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	// Scores sobrevivem; só as extrações categóricas fora do catálogo caem.
	assert.Equal(t, 10, result.ScoreEngagement)
	assert.Nil(t, result.ExtractedCurrency)
	assert.Nil(t, result.ExtractedContactWayID)
}

func TestAnalyzeNormalizesBlankStrings(t *testing.T) {
	llm := new(MockStructuredGenerator)
	analyzer := NewLeadAnalyzer(llm)

	raw := []byte(`{
		"score_engagement": 0, "score_finance": 0, "score_timeline": 0, "score_match": 0, "score_info": 0,
		"reasoning": "sin datos",
		"extracted_name": "   ", "extracted_email": "  ana@mail.com  "
	}`)
	llm.On("GenerateStructured", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)

	result := analyzer.Analyze(context.Background(), analyzerHistory(), testCatalog())

	assert.Nil(t, result.ExtractedName)
	assert.Equal(t, "ana@mail.com", *result.ExtractedEmail)
}
