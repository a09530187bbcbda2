package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/relaychat/relay-backend/internal/repos/testutil"
	"github.com/relaychat/relay-backend/internal/types"
)

func TestSearchEmptyQuery(t *testing.T) {
	client := &fakeOpenAI{}
	svc := NewSearchService(nil, testutil.Logger(t), &fakeMessageRepo{}, &fakeUserRepo{}, &fakeChannelRepo{}, client)

	if got := svc.Search(context.Background(), "   "); len(got) != 0 {
		t.Fatalf("blank query must yield empty results, got %d", len(got))
	}
	if client.embedCalls != 0 {
		t.Fatalf("blank query must not hit the embedder")
	}
}

func TestSearchEmbedFailureYieldsEmpty(t *testing.T) {
	client := &fakeOpenAI{
		embedFn: func([]string, EmbedMode) ([][]float32, error) {
			return nil, fmt.Errorf("unavailable")
		},
	}
	svc := NewSearchService(nil, testutil.Logger(t), &fakeMessageRepo{}, &fakeUserRepo{}, &fakeChannelRepo{}, client)

	if got := svc.Search(context.Background(), "rollout plan"); len(got) != 0 {
		t.Fatalf("embed failure must yield empty results, got %d", len(got))
	}
}

func TestSearchMatchFailureYieldsEmpty(t *testing.T) {
	repo := &fakeMessageRepo{matchErr: fmt.Errorf("db down")}
	svc := NewSearchService(nil, testutil.Logger(t), repo, &fakeUserRepo{}, &fakeChannelRepo{}, &fakeOpenAI{})

	if got := svc.Search(context.Background(), "rollout plan"); len(got) != 0 {
		t.Fatalf("match failure must yield empty results, got %d", len(got))
	}
}

func TestSearchHydratesAndPreservesOrder(t *testing.T) {
	ana := uuid.New()
	ghost := uuid.New()
	channel := uuid.New()
	conversation := uuid.New()
	chainText := "Channel: planning\n[Ana, 09:00]: rollout plan"

	repo := &fakeMessageRepo{
		matches: []*types.MessageMatch{
			{
				MessageID:      uuid.New(),
				AuthorID:       ana,
				ChannelID:      &channel,
				Content:        "rollout plan attached",
				Similarity:     0.91,
				FormattedChain: &chainText,
			},
			{
				MessageID:      uuid.New(),
				AuthorID:       ghost,
				ConversationID: &conversation,
				Content:        "ping about rollout",
				Similarity:     0.44,
			},
		},
	}
	users := &fakeUserRepo{users: map[uuid.UUID]*types.User{
		ana: {ID: ana, DisplayName: "Ana"},
		// ghost intentionally missing
	}}
	channels := &fakeChannelRepo{channels: map[uuid.UUID]*types.Channel{
		channel: {ID: channel, Name: "planning"},
	}}
	client := &fakeOpenAI{}

	svc := NewSearchService(nil, testutil.Logger(t), repo, users, channels, client)
	got := svc.Search(context.Background(), "rollout plan")

	if client.lastEmbedMode != EmbedModeQuery {
		t.Fatalf("search must embed in query mode, got %q", client.lastEmbedMode)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Similarity < got[1].Similarity {
		t.Fatalf("database order must be preserved")
	}
	if got[0].SenderName != "Ana" {
		t.Fatalf("sender name not hydrated: %q", got[0].SenderName)
	}
	if got[0].ChannelName == nil || *got[0].ChannelName != "planning" {
		t.Fatalf("channel name not hydrated")
	}
	if got[0].FormattedChain == nil || *got[0].FormattedChain != chainText {
		t.Fatalf("formatted chain not carried through")
	}
	if got[1].SenderName != "Unknown User" {
		t.Fatalf("missing author must fall back to Unknown User, got %q", got[1].SenderName)
	}
	if got[1].ChannelName != nil {
		t.Fatalf("conversation match must carry no channel name")
	}
}
