package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

var ErrLeadNotFound = errors.New("lead not found")

type LeadRepository struct {
	DB *sql.DB

	writeLocks keyedMutex
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// MergeScoring aplica o resultado do analyzer no lead. Os cinco scores
// são sempre escritos (0 é valor autoritativo); cada campo extraído só
// entra no SET quando veio não-nulo — extração ausente nunca apaga dado
// conhecido. Serializado por id de lead.
func (r *LeadRepository) MergeScoring(ctx context.Context, leadID string, result entity.ScoringResult) (*entity.Lead, error) {
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("scoring rejeitado: %w", err)
	}

	unlock := r.writeLocks.Lock(leadID)
	defer unlock()

	query, args := BuildMergeScoringQuery(leadID, result)

	var lead entity.Lead
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&lead.ID,
		&lead.ClientID,
		&lead.SourceID,
		&lead.FullName,
		&lead.Email,
		&lead.Phone,
		&lead.DeclaredIncome,
		&lead.CurrentDebts,
		&lead.CurrencyCode,
		&lead.ContactWayID,
		&lead.ScoreEngagement,
		&lead.ScoreFinance,
		&lead.ScoreTimeline,
		&lead.ScoreMatch,
		&lead.ScoreInfo,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao atualizar lead: %w", err)
	}

	return &lead, nil
}

// BuildMergeScoringQuery monta o UPDATE campo a campo. Função pura,
// separada justamente para o write set condicional ser testável sem banco.
func BuildMergeScoringQuery(leadID string, result entity.ScoringResult) (string, []interface{}) {
	set := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("score_engagement", result.ScoreEngagement)
	add("score_finance", result.ScoreFinance)
	add("score_timeline", result.ScoreTimeline)
	add("score_match", result.ScoreMatch)
	add("score_info", result.ScoreInfo)
	add("updated_at", time.Now())

	if result.ExtractedName != nil {
		add("full_name", *result.ExtractedName)
	}
	if result.ExtractedEmail != nil {
		add("email", *result.ExtractedEmail)
	}
	if result.ExtractedPhone != nil {
		add("phone", *result.ExtractedPhone)
	}
	if result.ExtractedIncome != nil {
		add("declared_income", *result.ExtractedIncome)
	}
	if result.ExtractedDebts != nil {
		add("current_debts", *result.ExtractedDebts)
	}
	if result.ExtractedCurrency != nil {
		add("currency_code", *result.ExtractedCurrency)
	}
	if result.ExtractedContactWayID != nil {
		add("contact_way_id", *result.ExtractedContactWayID)
	}

	args = append(args, leadID)
	query := fmt.Sprintf(`
		UPDATE lead_leads
		SET %s
		WHERE id = $%d
		RETURNING id, client_id, source_id, full_name, email, phone, declared_income, current_debts, currency_code, contact_way_id,
			score_engagement, score_finance, score_timeline, score_match, score_info, created_at, updated_at
	`, strings.Join(set, ", "), len(args))

	return query, args
}
