package types

import "github.com/google/uuid"

// MessageMatch is one raw row from the vector similarity query, before
// hydration. Similarity is cosine similarity in [0, 1], higher is closer.
type MessageMatch struct {
	MessageID      uuid.UUID  `json:"message_id"`
	AuthorID       uuid.UUID  `json:"author_id"`
	ChannelID      *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Content        string     `json:"content"`
	Similarity     float64    `json:"similarity"`
	FormattedChain *string    `json:"formatted_chain,omitempty"`
}

// SearchResult is a hydrated match returned to the caller, in the similarity
// order the database produced.
type SearchResult struct {
	MessageID      uuid.UUID `json:"message_id"`
	Content        string    `json:"content"`
	Similarity     float64   `json:"similarity"`
	SenderName     string    `json:"sender_name"`
	ChannelName    *string   `json:"channel_name,omitempty"`
	FormattedChain *string   `json:"formatted_chain,omitempty"`
}
