package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

const DefaultModel = "gemini-2.0-flash"

// Temperaturas fixas por caminho: conversa um pouco criativa, scoring
// determinístico.
const (
	chatTemperature     float32 = 0.2
	analysisTemperature float32 = 0
)

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cliente genai: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Generate produz a resposta do turno: prompt de sistema já com o
// contexto substituído, janela de histórico e a pergunta nova.
// Uma tentativa só, sem retry.
func (c *Client) Generate(ctx context.Context, systemPrompt string, history []entity.Message, input string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		var role genai.Role = genai.RoleModel
		if msg.Role == entity.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(input, genai.RoleUser))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(chatTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("erro na geração gemini: %w", err)
	}

	answer := resp.Text()
	if answer == "" {
		return "", fmt.Errorf("gemini devolveu resposta vazia")
	}
	return answer, nil
}

// GenerateStructured força saída JSON (modo estruturado do Gemini) e
// devolve os bytes crus para o chamador decodificar e validar.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(analysisTemperature),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("erro na geração estruturada gemini: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("gemini devolveu JSON vazio")
	}
	return []byte(raw), nil
}
