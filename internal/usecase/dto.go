package usecase

type ChatTurnInput struct {
	QueryText      string                 `json:"query_text"`
	ClientID       string                 `json:"client_id"`
	ConversationID *string                `json:"conversation_id,omitempty"`
	UserMetadata   map[string]interface{} `json:"user_metadata,omitempty"`
}

type SourceDocument struct {
	ContentID   string                 `json:"content_id"`
	Title       *string                `json:"title,omitempty"`
	BodyContent string                 `json:"body_content"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type ChatTurnOutput struct {
	Answer         string           `json:"answer"`
	Sources        []SourceDocument `json:"sources"`
	ConversationID string           `json:"conversation_id"`
}
