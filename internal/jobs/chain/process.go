package chain

import (
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/relaychat/relay-backend/internal/jobs/runtime"
	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/services"
	"github.com/relaychat/relay-backend/internal/types"
)

// Processor runs one chain_process job: describe any undescribed media
// attachments, rebuild the author's chain around the payload message, ask the
// language model for a situating context, then commit the embedding.
type Processor struct {
	log           *logger.Logger
	messages      repos.MessageRepo
	attachments   repos.AttachmentRepo
	channels      repos.ChannelRepo
	conversations repos.ConversationRepo
	builder       services.ChainBuilderService
	formatter     services.HistoryFormatterService
	synthesizer   services.ContextSynthesizerService
	writer        services.EmbeddingWriterService
	describer     services.AttachmentDescriber
	bus           services.EventBus
}

func NewProcessor(
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	attachmentRepo repos.AttachmentRepo,
	channelRepo repos.ChannelRepo,
	conversationRepo repos.ConversationRepo,
	builder services.ChainBuilderService,
	formatter services.HistoryFormatterService,
	synthesizer services.ContextSynthesizerService,
	writer services.EmbeddingWriterService,
	describer services.AttachmentDescriber,
	bus services.EventBus,
) *Processor {
	return &Processor{
		log:           baseLog.With("component", "ChainProcessor"),
		messages:      messageRepo,
		attachments:   attachmentRepo,
		channels:      channelRepo,
		conversations: conversationRepo,
		builder:       builder,
		formatter:     formatter,
		synthesizer:   synthesizer,
		writer:        writer,
		describer:     describer,
		bus:           bus,
	}
}

func (p *Processor) Type() string { return types.JobTypeChainProcess }

func (p *Processor) Run(jc *runtime.Context) error {
	var payload services.ChainProcessPayload
	if err := jc.DecodePayload(&payload); err != nil {
		jc.Fail("payload", err)
		return err
	}

	msg, err := p.messages.GetByID(jc.Ctx, nil, payload.MessageID)
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	if msg == nil {
		// Deleted while the run was pending. Nothing to embed.
		p.log.Info("Chain target gone, skipping", "message_id", payload.MessageID)
		jc.Succeed("skipped", map[string]any{"reason": "message_missing"})
		return nil
	}

	jc.Stage("build")
	chain, err := p.builder.Build(jc.Ctx, msg)
	if err != nil {
		jc.Fail("build", err)
		return err
	}

	header, contextLabel, found, err := p.contextHeader(jc, msg)
	if err != nil {
		jc.Fail("context", err)
		return err
	}
	if !found {
		// Channel or conversation deleted while the run was pending;
		// retrying cannot bring it back.
		p.log.Info("Chain context gone, skipping",
			"message_id", msg.ID,
			"context_id", msg.ContextID(),
			"kind", string(msg.ContextKind()),
		)
		jc.Succeed("skipped", map[string]any{"reason": "context_missing"})
		return nil
	}

	jc.Stage("describe")
	p.describeAttachments(jc, chain, contextLabel)

	body := services.RenderChain(chain, header, msg.Author.SenderName())

	jc.Stage("synthesize")
	transcript, err := p.formatter.Transcript(jc.Ctx, msg.ContextKind(), msg.ContextID())
	if err != nil {
		jc.Fail("synthesize", err)
		return err
	}
	contextText := p.synthesizer.Synthesize(jc.Ctx, transcript, body)

	jc.Stage("embed")
	if err := p.writer.Commit(jc.Ctx, chain, contextText, body); err != nil {
		jc.Fail("embed", err)
		return err
	}

	terminal := chain[len(chain)-1]
	services.PublishEvent(jc.Ctx, p.bus, p.log, services.Event{
		Type:      services.EventMessageEmbedded,
		MessageID: terminal.ID,
		ContextID: msg.ContextID(),
		Kind:      string(msg.ContextKind()),
	})

	jc.Succeed("embedded", map[string]any{
		"terminal_message_id": terminal.ID,
		"chain_size":          len(chain),
	})
	return nil
}

// contextHeader resolves the transcript header and the display label used in
// legacy description wrappers. found is false when the channel/conversation
// row no longer exists.
func (p *Processor) contextHeader(jc *runtime.Context, msg *types.Message) (header string, contextLabel string, found bool, err error) {
	switch msg.ContextKind() {
	case types.ContextConversation:
		conv, err := p.conversations.GetByID(jc.Ctx, nil, msg.ContextID())
		if err != nil {
			return "", "", false, err
		}
		if conv == nil {
			return "", "", false, nil
		}
		recipient := conv.RecipientName(msg.AuthorID)
		return "Direct Message Recipient: " + recipient, "a direct message", true, nil
	default:
		ch, err := p.channels.GetByID(jc.Ctx, nil, msg.ContextID())
		if err != nil {
			return "", "", false, err
		}
		if ch == nil {
			return "", "", false, nil
		}
		return "Channel: " + ch.Name, ch.Name, true, nil
	}
}

// describeAttachments fills in captions and descriptions for any media
// attachment in the chain that has neither. Describer failures leave the
// attachment undescribed; the chain still embeds.
func (p *Processor) describeAttachments(jc *runtime.Context, chain []*types.Message, contextLabel string) {
	if p.describer == nil {
		return
	}

	g, gctx := errgroup.WithContext(jc.Ctx)
	g.SetLimit(4)

	for _, msg := range chain {
		for _, att := range msg.Attachments {
			if att.MimeCategory.KindLabel() == "" {
				continue
			}
			if described(att) {
				continue
			}
			msg, att := msg, att
			g.Go(func() error {
				res, err := p.describer.Describe(gctx, att)
				if err != nil {
					p.log.Warn("Attachment description failed", "attachment_id", att.ID, "error", err)
					return nil
				}
				if res == nil || strings.TrimSpace(res.Description) == "" {
					return nil
				}
				formatted := services.FormatDescriptionWrapper(
					msg.Author.SenderName(),
					att.FileName,
					contextLabel,
					msg.CreatedAt,
					att.MimeCategory.KindLabel(),
					res.Description,
				)
				if err := p.attachments.UpdateDescription(gctx, nil, att.ID, res.Caption, res.Description, formatted); err != nil {
					p.log.Warn("Attachment description write failed", "attachment_id", att.ID, "error", err)
					return nil
				}
				caption := res.Caption
				description := res.Description
				att.Caption = &caption
				att.Description = &description
				att.FormattedDescription = &formatted
				return nil
			})
		}
	}
	_ = g.Wait()
}

func described(att *types.Attachment) bool {
	if att.Description != nil && strings.TrimSpace(*att.Description) != "" {
		return true
	}
	if att.FormattedDescription != nil && strings.TrimSpace(*att.FormattedDescription) != "" {
		return true
	}
	return false
}
