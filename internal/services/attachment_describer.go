package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/relaychat/relay-backend/internal/clients/gcp"
	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/types"
)

// AttachmentDescription is the describer's output for one attachment.
type AttachmentDescription struct {
	Caption     string
	Description string
}

// AttachmentDescriber produces a caption and a plain-text description for a
// media attachment. Other mime categories come back empty without error.
type AttachmentDescriber interface {
	Describe(ctx context.Context, att *types.Attachment) (*AttachmentDescription, error)
}

type gcpAttachmentDescriber struct {
	log     *logger.Logger
	storage gcp.Storage
	vision  gcp.Vision
	speech  gcp.Speech
	video   gcp.Video
}

func NewGCPAttachmentDescriber(
	baseLog *logger.Logger,
	storage gcp.Storage,
	vision gcp.Vision,
	speech gcp.Speech,
	video gcp.Video,
) AttachmentDescriber {
	return &gcpAttachmentDescriber{
		log:     baseLog.With("service", "AttachmentDescriber"),
		storage: storage,
		vision:  vision,
		speech:  speech,
		video:   video,
	}
}

func (d *gcpAttachmentDescriber) Describe(ctx context.Context, att *types.Attachment) (*AttachmentDescription, error) {
	if att == nil {
		return nil, fmt.Errorf("attachment required")
	}

	switch att.MimeCategory {
	case types.MimeImage:
		return d.describeImage(ctx, att)
	case types.MimeAudio:
		return d.describeAudio(ctx, att)
	case types.MimeVideo:
		return d.describeVideo(ctx, att)
	default:
		return &AttachmentDescription{}, nil
	}
}

func (d *gcpAttachmentDescriber) describeImage(ctx context.Context, att *types.Attachment) (*AttachmentDescription, error) {
	if d.storage == nil || d.vision == nil {
		return nil, fmt.Errorf("image description unavailable")
	}
	img, err := d.storage.Download(ctx, att.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	res, err := d.vision.DescribeImageBytes(ctx, img, att.MimeType)
	if err != nil {
		return nil, err
	}
	d.log.Info("Image described", "attachment_id", att.ID, "labels", len(res.Labels))
	return &AttachmentDescription{Caption: res.Caption, Description: res.Description}, nil
}

func (d *gcpAttachmentDescriber) describeAudio(ctx context.Context, att *types.Attachment) (*AttachmentDescription, error) {
	if d.storage == nil || d.speech == nil {
		return nil, fmt.Errorf("audio description unavailable")
	}
	res, err := d.speech.TranscribeAudioGCS(ctx, d.storage.ObjectURI(att.StorageKey))
	if err != nil {
		return nil, err
	}
	transcript := strings.TrimSpace(res.Transcript)
	desc := ""
	if transcript != "" {
		desc = "An audio recording. Transcript: " + transcript
	}
	d.log.Info("Audio described", "attachment_id", att.ID, "transcript_len", len(transcript))
	return &AttachmentDescription{Description: desc}, nil
}

func (d *gcpAttachmentDescriber) describeVideo(ctx context.Context, att *types.Attachment) (*AttachmentDescription, error) {
	if d.storage == nil || d.video == nil {
		return nil, fmt.Errorf("video description unavailable")
	}
	res, err := d.video.AnnotateVideoGCS(ctx, d.storage.ObjectURI(att.StorageKey))
	if err != nil {
		return nil, err
	}
	caption := ""
	if len(res.Labels) > 0 {
		n := len(res.Labels)
		if n > 3 {
			n = 3
		}
		caption = strings.Join(res.Labels[:n], ", ")
	}
	d.log.Info("Video described", "attachment_id", att.ID, "labels", len(res.Labels))
	return &AttachmentDescription{Caption: caption, Description: res.Summary()}, nil
}
