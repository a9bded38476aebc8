package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xavierca1/ligue-inference/internal/infra/http/middleware"
)

// Client fala com o semantic-adapter (serviço de busca vetorial).
// É um colaborador best-effort: quem chama decide o que fazer com erro.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, input SearchInput) ([]Document, error) {
	url := fmt.Sprintf("%s/api/v1/search", c.baseURL)

	jsonBody, err := json.Marshal(searchRequest{
		QueryText: input.QueryText,
		ClientID:  input.ClientID,
		TopK:      input.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao marshal busca: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LigueInference/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		middleware.RecordRetrievalFailure()
		return nil, fmt.Errorf("erro request semantic-adapter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		middleware.RecordRetrievalFailure()
		return nil, fmt.Errorf("semantic-adapter rejeitou (status %d): %s", resp.StatusCode, string(body))
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		middleware.RecordRetrievalFailure()
		return nil, fmt.Errorf("erro decode semantic-adapter: %w", err)
	}

	return response.Results, nil
}
