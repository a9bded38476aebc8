package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxQueryLength = 4000

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateChatTurnInput(input ChatTurnInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.QueryText) == "" {
		errors = append(errors, ValidationError{"query_text", "is required"})
	} else if len(input.QueryText) > maxQueryLength {
		errors = append(errors, ValidationError{"query_text", fmt.Sprintf("must not exceed %d characters", maxQueryLength)})
	}

	if strings.TrimSpace(input.ClientID) == "" {
		errors = append(errors, ValidationError{"client_id", "is required"})
	}

	if input.ConversationID != nil {
		if _, err := uuid.Parse(*input.ConversationID); err != nil {
			errors = append(errors, ValidationError{"conversation_id", "must be a valid UUID"})
		}
	}

	return errors
}
