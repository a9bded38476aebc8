package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultSystemPrompt é o terceiro e último tier: fallback de segurança
// hardcoded, com o marcador {context_text} que o orquestrador substitui.
const DefaultSystemPrompt = "Eres un asistente técnico. Responde basándote exclusivamente en el contexto:\n\n{context_text}"

type PromptRepository struct {
	DB *sql.DB
}

func NewPromptRepository(db *sql.DB) *PromptRepository {
	return &PromptRepository{DB: db}
}

// ResolveSystemPrompt: lookup em três tiers, o primeiro que casar vence.
//  1. prompt ativo do cliente para o slug
//  2. prompt ativo global (client_id NULL) para o slug
//  3. DefaultSystemPrompt
func (r *PromptRepository) ResolveSystemPrompt(ctx context.Context, clientID, slug string) (string, error) {
	var promptText string

	err := r.DB.QueryRowContext(ctx,
		`SELECT prompt_text FROM lead_ai_prompts WHERE client_id = $1 AND slug = $2 AND is_active = true`,
		clientID, slug,
	).Scan(&promptText)
	if err == nil {
		return promptText, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("erro ao buscar prompt do cliente: %w", err)
	}

	err = r.DB.QueryRowContext(ctx,
		`SELECT prompt_text FROM lead_ai_prompts WHERE client_id IS NULL AND slug = $1 AND is_active = true`,
		slug,
	).Scan(&promptText)
	if err == nil {
		return promptText, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("erro ao buscar prompt global: %w", err)
	}

	return DefaultSystemPrompt, nil
}
