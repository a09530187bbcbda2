package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaychat/relay-backend/internal/logger"
)

const synthesizerSystemPrompt = `You situate a chunk of chat messages within the full conversation. ` +
	`Answer with a short, succinct context of 1-2 sentences and at most 100 tokens. ` +
	`Answer ONLY with the context, nothing else.`

// ContextSynthesizerService asks the language model for a 1-2 sentence
// context situating a chain within its conversation.
type ContextSynthesizerService interface {
	// Synthesize returns "" on any upstream failure or malformed response;
	// an empty context means "omit", never an abort.
	Synthesize(ctx context.Context, transcript string, chainText string) string
}

type contextSynthesizerService struct {
	log    *logger.Logger
	openai OpenAIClient
}

func NewContextSynthesizerService(baseLog *logger.Logger, openai OpenAIClient) ContextSynthesizerService {
	return &contextSynthesizerService{
		log:    baseLog.With("service", "ContextSynthesizerService"),
		openai: openai,
	}
}

func (s *contextSynthesizerService) Synthesize(ctx context.Context, transcript string, chainText string) string {
	if s.openai == nil {
		return ""
	}
	if strings.TrimSpace(chainText) == "" {
		return ""
	}

	user := fmt.Sprintf(
		"<conversation>\n%s\n</conversation>\n\nHere is the chunk we want to situate within the conversation:\n<chunk>\n%s\n</chunk>",
		transcript, chainText,
	)

	out, err := s.openai.GenerateText(ctx, synthesizerSystemPrompt, user, 0.3)
	if err != nil {
		s.log.Warn("Context synthesis failed, continuing without context", "error", err)
		return ""
	}
	return strings.TrimSpace(out)
}
