package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/relaychat/relay-backend/internal/logger"
)

type Vision interface {
	DescribeImageBytes(ctx context.Context, img []byte, mimeType string) (*ImageDescription, error)
	Close() error
}

// ImageDescription is what label and text detection produce for one image:
// a short caption built from the top labels, plus a longer description that
// folds in any text found in the image.
type ImageDescription struct {
	Provider    string   `json:"provider"`
	MimeType    string   `json:"mime_type,omitempty"`
	Caption     string   `json:"caption"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
	Text        string   `json:"text,omitempty"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient

	maxLabels     int
	minLabelScore float32
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{
		log:           slog,
		client:        client,
		maxLabels:     8,
		minLabelScore: 0.6,
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) DescribeImageBytes(ctx context.Context, img []byte, mimeType string) (*ImageDescription, error) {
	if len(img) == 0 {
		return &ImageDescription{Provider: "gcp_vision", MimeType: mimeType}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(s.maxLabels)},
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &ImageDescription{Provider: "gcp_vision", MimeType: mimeType}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	labels := make([]string, 0, len(r0.LabelAnnotations))
	for _, la := range r0.LabelAnnotations {
		if la == nil || strings.TrimSpace(la.Description) == "" {
			continue
		}
		if la.Score < s.minLabelScore {
			continue
		}
		labels = append(labels, strings.ToLower(strings.TrimSpace(la.Description)))
	}

	text := ""
	if r0.FullTextAnnotation != nil {
		text = collapseWhitespace(r0.FullTextAnnotation.Text)
	}

	out := &ImageDescription{
		Provider: "gcp_vision",
		MimeType: mimeType,
		Labels:   labels,
		Text:     text,
	}
	out.Caption, out.Description = composeImageDescription(labels, text)
	return out, nil
}

func composeImageDescription(labels []string, text string) (caption, description string) {
	switch {
	case len(labels) >= 3:
		caption = strings.Join(labels[:3], ", ")
	case len(labels) > 0:
		caption = strings.Join(labels, ", ")
	}

	var b strings.Builder
	if len(labels) > 0 {
		b.WriteString("An image showing ")
		b.WriteString(strings.Join(labels, ", "))
		b.WriteString(".")
	}
	if text != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Visible text: ")
		b.WriteString(truncateText(text, 500))
	}
	return caption, b.String()
}

func truncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
