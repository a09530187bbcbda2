package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/relaychat/relay-backend/internal/logger"
)

type Video interface {
	AnnotateVideoGCS(ctx context.Context, gcsURI string) (*VideoResult, error)
	Close() error
}

type VideoResult struct {
	Provider   string   `json:"provider"`
	SourceURI  string   `json:"source_uri"`
	Transcript string   `json:"transcript"`
	Labels     []string `json:"labels,omitempty"`
	OnScreen   string   `json:"on_screen_text,omitempty"`
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries int
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Video")

	ctx := context.Background()
	c, err := videointelligence.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	return &videoService{log: slog, client: c, maxRetries: 4}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) AnnotateVideoGCS(ctx context.Context, gcsURI string) (*VideoResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{
			vipb.Feature_SPEECH_TRANSCRIPTION,
			vipb.Feature_LABEL_DETECTION,
			vipb.Feature_TEXT_DETECTION,
		},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               "en-US",
				EnableAutomaticPunctuation: true,
			},
			TextDetectionConfig: &vipb.TextDetectionConfig{},
		},
	}

	resp, err := s.retryAnnotate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("videointelligence annotate: %w", err)
	}

	out := &VideoResult{Provider: "gcp_video", SourceURI: gcsURI}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return out, nil
	}
	r0 := resp.AnnotationResults[0]

	var transcript strings.Builder
	for _, st := range r0.SpeechTranscriptions {
		if st == nil || len(st.Alternatives) == 0 || st.Alternatives[0] == nil {
			continue
		}
		txt := strings.TrimSpace(st.Alternatives[0].Transcript)
		if txt == "" {
			continue
		}
		if transcript.Len() > 0 {
			transcript.WriteString(" ")
		}
		transcript.WriteString(txt)
	}
	out.Transcript = transcript.String()

	seen := map[string]bool{}
	for _, la := range r0.SegmentLabelAnnotations {
		if la == nil || la.Entity == nil {
			continue
		}
		desc := strings.ToLower(strings.TrimSpace(la.Entity.Description))
		if desc == "" || seen[desc] {
			continue
		}
		seen[desc] = true
		out.Labels = append(out.Labels, desc)
	}

	texts := []string{}
	seenText := map[string]bool{}
	for _, ta := range r0.TextAnnotations {
		if ta == nil {
			continue
		}
		t := collapseWhitespace(ta.Text)
		if t == "" || seenText[t] {
			continue
		}
		seenText[t] = true
		texts = append(texts, t)
	}
	out.OnScreen = strings.Join(texts, " ")

	return out, nil
}

// Summary renders the annotation into a single plain-text description.
func (r *VideoResult) Summary() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if len(r.Labels) > 0 {
		b.WriteString("A video showing ")
		b.WriteString(strings.Join(r.Labels, ", "))
		b.WriteString(".")
	}
	if r.Transcript != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Spoken audio: ")
		b.WriteString(truncateText(r.Transcript, 800))
	}
	if r.OnScreen != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("On-screen text: ")
		b.WriteString(truncateText(r.OnScreen, 300))
	}
	return b.String()
}

func (s *videoService) retryAnnotate(ctx context.Context, req *vipb.AnnotateVideoRequest) (*vipb.AnnotateVideoResponse, error) {
	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		op, err := s.client.AnnotateVideo(ctx, req)
		if err == nil {
			resp, werr := op.Wait(ctx)
			if werr == nil {
				return resp, nil
			}
			err = werr
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}
