package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceWebchat é o source_id fixo de leads criados pelo canal de chat.
const SourceWebchat = 14

type Lead struct {
	ID             string   `json:"id"`
	ClientID       string   `json:"client_id"`
	SourceID       int      `json:"source_id"`
	FullName       string   `json:"full_name"`
	Email          *string  `json:"email,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	DeclaredIncome *float64 `json:"declared_income,omitempty"`
	CurrentDebts   *float64 `json:"current_debts,omitempty"`
	CurrencyCode   *string  `json:"currency_code,omitempty"`
	ContactWayID   *int     `json:"contact_way_id,omitempty"`

	ScoreEngagement int `json:"score_engagement"`
	ScoreFinance    int `json:"score_finance"`
	ScoreTimeline   int `json:"score_timeline"`
	ScoreMatch      int `json:"score_match"`
	ScoreInfo       int `json:"score_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Lead) TotalScore() int {
	return l.ScoreEngagement + l.ScoreFinance + l.ScoreTimeline + l.ScoreMatch + l.ScoreInfo
}

// Factory: lead provisório criado pelo bootstrap da conversa.
// O nome real chega depois, via extração do analyzer.
func NewLead(clientID string) *Lead {
	short := clientID
	if len(short) > 8 {
		short = short[:8]
	}

	now := time.Now()
	return &Lead{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		SourceID:  SourceWebchat,
		FullName:  fmt.Sprintf("User %s", short),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
