package entity

import "fmt"

// Faixas fechadas de cada dimensão de qualificação.
// Qualquer valor fora da faixa é rejeitado antes de chegar no banco.
const (
	ScoreEngagementMin = -20
	ScoreEngagementMax = 30
	ScoreFinanceMin    = -10
	ScoreFinanceMax    = 30
	ScoreTimelineMin   = 0
	ScoreTimelineMax   = 20
	ScoreMatchMin      = 0
	ScoreMatchMax      = 15
	ScoreInfoMin       = -3
	ScoreInfoMax       = 5
)

// FallbackReasoning marca um resultado neutro produzido por falha do análise.
const FallbackReasoning = "Error en el análisis automático."

// ScoringResult é a saída do analyzer: cinco scores sempre presentes
// (0 é valor válido, não "sem atualização") e até sete campos extraídos,
// todos opcionais de forma independente.
type ScoringResult struct {
	ScoreEngagement int    `json:"score_engagement"`
	ScoreFinance    int    `json:"score_finance"`
	ScoreTimeline   int    `json:"score_timeline"`
	ScoreMatch      int    `json:"score_match"`
	ScoreInfo       int    `json:"score_info"`
	Reasoning       string `json:"reasoning"`

	ExtractedName         *string  `json:"extracted_name,omitempty"`
	ExtractedEmail        *string  `json:"extracted_email,omitempty"`
	ExtractedPhone        *string  `json:"extracted_phone,omitempty"`
	ExtractedIncome       *float64 `json:"extracted_income,omitempty"`
	ExtractedDebts        *float64 `json:"extracted_debts,omitempty"`
	ExtractedCurrency     *string  `json:"extracted_currency,omitempty"`
	ExtractedContactWayID *int     `json:"extracted_contact_way_id,omitempty"`
}

func (r *ScoringResult) Validate() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"score_engagement", r.ScoreEngagement, ScoreEngagementMin, ScoreEngagementMax},
		{"score_finance", r.ScoreFinance, ScoreFinanceMin, ScoreFinanceMax},
		{"score_timeline", r.ScoreTimeline, ScoreTimelineMin, ScoreTimelineMax},
		{"score_match", r.ScoreMatch, ScoreMatchMin, ScoreMatchMax},
		{"score_info", r.ScoreInfo, ScoreInfoMin, ScoreInfoMax},
	}

	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%s fora da faixa [%d,%d]: %d", c.name, c.min, c.max, c.value)
		}
	}
	return nil
}

// NeutralScoringResult é o fallback de falha: baseline 0 em tudo,
// nenhum campo extraído.
func NeutralScoringResult() ScoringResult {
	return ScoringResult{Reasoning: FallbackReasoning}
}
