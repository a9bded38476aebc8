package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

// MockScorer
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Analyze(ctx context.Context, history []entity.Message, catalogs entity.Catalog) entity.ScoringResult {
	args := m.Called(ctx, history, catalogs)
	return args.Get(0).(entity.ScoringResult)
}

// MockLeadStore
type MockLeadStore struct {
	mock.Mock

	lastResult entity.ScoringResult
}

func (m *MockLeadStore) MergeScoring(ctx context.Context, leadID string, result entity.ScoringResult) (*entity.Lead, error) {
	m.lastResult = result
	args := m.Called(ctx, leadID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendHotLeadAlert(lead *entity.Lead, reasoning string) error {
	args := m.Called(lead, reasoning)
	return args.Error(0)
}

func workerPayload() AnalysisPayload {
	return AnalysisPayload{
		LeadID:         "lead-1",
		ConversationID: "conv-1",
		History: []entity.Message{
			{Role: entity.RoleUser, Content: "Quiero pagar al contado este mes"},
		},
		Catalogs: entity.Catalog{Currencies: []string{"PEN"}},
	}
}

func TestProcessMessageMergesAnalyzerResult(t *testing.T) {
	scorer := new(MockScorer)
	store := new(MockLeadStore)
	worker := NewWorker(nil, scorer, store, nil, 2, 70)

	result := entity.ScoringResult{ScoreEngagement: 20, ScoreFinance: 25, Reasoning: "contado"}
	lead := &entity.Lead{ID: "lead-1", ScoreEngagement: 20, ScoreFinance: 25}

	scorer.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(result)
	store.On("MergeScoring", mock.Anything, "lead-1", result).Return(lead, nil)

	err := worker.processMessage(context.Background(), workerPayload())

	assert.NoError(t, err)
	assert.Equal(t, result, store.lastResult)
}

func TestProcessMessageMergeFailurePropagates(t *testing.T) {
	scorer := new(MockScorer)
	store := new(MockLeadStore)
	worker := NewWorker(nil, scorer, store, nil, 2, 70)

	scorer.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(entity.NeutralScoringResult())
	store.On("MergeScoring", mock.Anything, "lead-1", mock.Anything).Return(nil, errors.New("lead not found"))

	err := worker.processMessage(context.Background(), workerPayload())

	// Erro sobe pro loop de consumo, que manda a mensagem pra DLQ.
	assert.Error(t, err)
}

func TestHotLeadAlertSentOncePerLead(t *testing.T) {
	notifier := new(MockNotifier)
	worker := NewWorker(nil, nil, nil, notifier, 2, 70)

	hot := &entity.Lead{ID: "lead-1", ScoreEngagement: 30, ScoreFinance: 30, ScoreTimeline: 20}
	notifier.On("SendHotLeadAlert", hot, "cash").Return(nil)

	worker.maybeNotifyHotLead(hot, "cash")
	worker.maybeNotifyHotLead(hot, "cash")
	worker.maybeNotifyHotLead(hot, "cash")

	notifier.AssertNumberOfCalls(t, "SendHotLeadAlert", 1)
}

func TestHotLeadAlertBelowThresholdSkipped(t *testing.T) {
	notifier := new(MockNotifier)
	worker := NewWorker(nil, nil, nil, notifier, 2, 70)

	cold := &entity.Lead{ID: "lead-2", ScoreEngagement: 10}
	worker.maybeNotifyHotLead(cold, "solo viendo")

	notifier.AssertNotCalled(t, "SendHotLeadAlert", mock.Anything, mock.Anything)
}

func TestHotLeadAlertWithoutNotifierIsNoop(t *testing.T) {
	worker := NewWorker(nil, nil, nil, nil, 2, 70)

	hot := &entity.Lead{ID: "lead-3", ScoreEngagement: 30, ScoreFinance: 30, ScoreTimeline: 20}
	worker.maybeNotifyHotLead(hot, "cash")
}

func TestNewWorkerDefaultsConcurrency(t *testing.T) {
	worker := NewWorker(nil, nil, nil, nil, 0, 70)
	assert.Equal(t, 4, worker.Concurrency)
}
