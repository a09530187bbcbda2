package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relaychat/relay-backend/internal/types"
)

func strPtr(s string) *string { return &s }

func TestStripDescriptionWrapper(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "image wrapper",
			in:   `[Ana shared 'whiteboard.png' in planning on June 1, 2025. Image description: a whiteboard covered in sticky notes]`,
			want: "a whiteboard covered in sticky notes",
		},
		{
			name: "audio wrapper",
			in:   `[Bo shared 'standup.mp3' in a direct message on June 2, 2025. Audio description: An audio recording. Transcript: we shipped it]`,
			want: "An audio recording. Transcript: we shipped it",
		},
		{
			name: "unwrapped text unchanged",
			in:   "a plain description",
			want: "a plain description",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDescriptionWrapper(tt.in); got != tt.want {
				t.Fatalf("StripDescriptionWrapper(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDescriptionWrapperRoundTrip(t *testing.T) {
	date := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	raw := "a bar chart of weekly active users"
	wrapped := FormatDescriptionWrapper("Ana", "chart.png", "analytics", date, "Image", raw)

	if !strings.Contains(wrapped, "Ana shared 'chart.png' in analytics on June 1, 2025") {
		t.Fatalf("wrapper missing envelope: %q", wrapped)
	}
	if got := StripDescriptionWrapper(wrapped); got != raw {
		t.Fatalf("round trip = %q, want %q", got, raw)
	}
}

func TestCombinedEmbeddingText(t *testing.T) {
	body := "Channel: planning\n[Ana, 09:30]: hello"

	if got := CombinedEmbeddingText("", body); got != body {
		t.Fatalf("empty context must leave body untouched, got %q", got)
	}
	if got := CombinedEmbeddingText("   ", body); got != body {
		t.Fatalf("blank context must leave body untouched, got %q", got)
	}

	got := CombinedEmbeddingText("Ana is planning the launch.", body)
	want := "Context: Ana is planning the launch.\n\n" + body
	if got != want {
		t.Fatalf("combined = %q, want %q", got, want)
	}
	if strings.Count(got, "Context: ") != 1 {
		t.Fatalf("exactly one Context prefix expected")
	}
}

func TestRenderChain(t *testing.T) {
	author := &types.User{DisplayName: "Ana"}
	channel := uuid.New()
	base := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	m1 := &types.Message{
		ID:        uuid.New(),
		Author:    author,
		ChannelID: &channel,
		Content:   "morning all",
		CreatedAt: base,
	}
	m2 := &types.Message{
		ID:        uuid.New(),
		Author:    author,
		ChannelID: &channel,
		Content:   "sketching the rollout",
		CreatedAt: base.Add(4 * time.Minute),
		Attachments: []*types.Attachment{
			{
				FileName:     "rollout.png",
				MimeCategory: types.MimeImage,
				Description:  strPtr("a rollout timeline sketch"),
			},
			{
				// undescribed attachments render no line
				FileName:     "raw.bin",
				MimeCategory: types.MimeOther,
			},
		},
	}

	got := RenderChain([]*types.Message{m1, m2}, "Channel: planning", "Ana")
	want := strings.Join([]string{
		"Channel: planning",
		"[Ana, 09:30]: morning all",
		"[Ana, 09:34]: sketching the rollout",
		`[Image: "rollout.png"] [Description: a rollout timeline sketch]`,
	}, "\n")
	if got != want {
		t.Fatalf("RenderChain mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderChainLegacyFormattedDescription(t *testing.T) {
	author := &types.User{DisplayName: "Bo"}
	channel := uuid.New()
	msg := &types.Message{
		Author:    author,
		ChannelID: &channel,
		Content:   "see attachment",
		CreatedAt: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		Attachments: []*types.Attachment{
			{
				FileName:             "demo.mp4",
				MimeCategory:         types.MimeVideo,
				FormattedDescription: strPtr(`[Bo shared 'demo.mp4' in planning on June 1, 2025. Video description: a screen recording of the new dashboard]`),
			},
		},
	}

	got := RenderChain([]*types.Message{msg}, "", "")
	if !strings.Contains(got, `[Video: "demo.mp4"] [Description: a screen recording of the new dashboard]`) {
		t.Fatalf("legacy wrapper not stripped for transcript line:\n%q", got)
	}
}
