package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/relaychat/relay-backend/internal/types"
)

const (
	transcriptDateFormat = "January 2, 2006"
	transcriptTimeFormat = "15:04"
)

// descriptionWrapperRe matches the display wrapper legacy rows carry in
// formatted_description ("<sender> shared '<file>' in <ctx> on <date>.
// <Kind> description: <text>"). New rows store the raw text separately and
// never round-trip through this.
var descriptionWrapperRe = regexp.MustCompile(`^\[.*?\. (Image|Audio|Video) description: `)

// StripDescriptionWrapper recovers the raw description from a wrapped one.
// Unwrapped input comes back unchanged.
func StripDescriptionWrapper(s string) string {
	loc := descriptionWrapperRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	out := s[loc[1]:]
	return strings.TrimSuffix(out, "]")
}

// FormatDescriptionWrapper builds the display form of an attachment
// description. It is the inverse of StripDescriptionWrapper.
func FormatDescriptionWrapper(sender, fileName, contextLabel string, date time.Time, kind, text string) string {
	return fmt.Sprintf("[%s shared '%s' in %s on %s. %s description: %s]",
		sender, fileName, contextLabel, date.Format(transcriptDateFormat), kind, text)
}

func messageLine(sender string, ts time.Time, content string) string {
	return fmt.Sprintf("[%s, %s]: %s", sender, ts.Format(transcriptTimeFormat), content)
}

// attachmentRawDescription resolves the raw description of an attachment:
// the raw column when present, otherwise the legacy formatted column with the
// wrapper stripped. false when the attachment has no description at all.
func attachmentRawDescription(att *types.Attachment) (string, bool) {
	if att == nil {
		return "", false
	}
	if att.Description != nil && strings.TrimSpace(*att.Description) != "" {
		return strings.TrimSpace(*att.Description), true
	}
	if att.FormattedDescription != nil && strings.TrimSpace(*att.FormattedDescription) != "" {
		return strings.TrimSpace(StripDescriptionWrapper(strings.TrimSpace(*att.FormattedDescription))), true
	}
	return "", false
}

// attachmentLine renders one transcript line per described attachment, e.g.
// [Image: "diagram.png"] [Description: a whiteboard photo of ...]
func attachmentLine(att *types.Attachment) (string, bool) {
	desc, ok := attachmentRawDescription(att)
	if !ok {
		return "", false
	}
	kind := att.MimeCategory.KindLabel()
	if kind == "" {
		return "", false
	}
	return fmt.Sprintf("[%s: %q] [Description: %s]", kind, att.FileName, desc), true
}

// RenderChain renders a chain body: the channel/recipient header, then each
// message oldest to newest, each immediately followed by its attachment
// description lines. This exact ordering feeds both the language model and
// the embedding, so it must stay stable.
func RenderChain(chain []*types.Message, header string, senderName string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}
	for _, msg := range chain {
		name := senderName
		if name == "" {
			name = msg.Author.SenderName()
		}
		b.WriteString(messageLine(name, msg.CreatedAt, msg.Content))
		b.WriteString("\n")
		for _, att := range msg.Attachments {
			if line, ok := attachmentLine(att); ok {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// CombinedEmbeddingText prepends the synthesized context to the chain body.
// An empty context yields the body untouched, with no "Context:" prefix.
func CombinedEmbeddingText(contextText string, chainBody string) string {
	contextText = strings.TrimSpace(contextText)
	if contextText == "" {
		return chainBody
	}
	return "Context: " + contextText + "\n\n" + chainBody
}
