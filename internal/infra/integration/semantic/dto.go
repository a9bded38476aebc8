package semantic

type SearchInput struct {
	QueryText string
	ClientID  string
	TopK      int
}

// Document é um trecho ranqueado devolvido pelo semantic-adapter.
// Score maior = mais similar.
type Document struct {
	ContentID   string                 `json:"content_id"`
	Title       *string                `json:"title"`
	BodyContent string                 `json:"body_content"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type searchRequest struct {
	QueryText string `json:"query_text"`
	ClientID  string `json:"client_id"`
	TopK      int    `json:"top_k"`
}

type searchResponse struct {
	Results []Document `json:"results"`
}
