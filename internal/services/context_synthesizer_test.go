package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/relaychat/relay-backend/internal/repos/testutil"
)

func TestSynthesizeReturnsTrimmedContext(t *testing.T) {
	var gotSystem, gotUser string
	var gotTemp float64
	client := &fakeOpenAI{
		generateFn: func(system, user string, temperature float64) (string, error) {
			gotSystem, gotUser, gotTemp = system, user, temperature
			return "  Ana is coordinating the launch rollout.  ", nil
		},
	}
	svc := NewContextSynthesizerService(testutil.Logger(t), client)

	got := svc.Synthesize(context.Background(), "Date: June 1, 2025\n[Ana, 09:00]: hi", "[Ana, 09:00]: hi")
	if got != "Ana is coordinating the launch rollout." {
		t.Fatalf("expected trimmed context, got %q", got)
	}
	if gotTemp != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", gotTemp)
	}
	if !strings.Contains(gotSystem, "1-2 sentences") {
		t.Fatalf("system prompt changed: %q", gotSystem)
	}
	if !strings.Contains(gotUser, "<conversation>") || !strings.Contains(gotUser, "<chunk>") {
		t.Fatalf("user prompt missing sections: %q", gotUser)
	}
}

func TestSynthesizeFailureYieldsEmptyContext(t *testing.T) {
	client := &fakeOpenAI{
		generateFn: func(string, string, float64) (string, error) {
			return "", fmt.Errorf("upstream 500")
		},
	}
	svc := NewContextSynthesizerService(testutil.Logger(t), client)

	if got := svc.Synthesize(context.Background(), "transcript", "chain"); got != "" {
		t.Fatalf("failure must degrade to empty context, got %q", got)
	}
}

func TestSynthesizeSkipsEmptyChain(t *testing.T) {
	client := &fakeOpenAI{}
	svc := NewContextSynthesizerService(testutil.Logger(t), client)

	if got := svc.Synthesize(context.Background(), "transcript", "   "); got != "" {
		t.Fatalf("blank chain text must yield empty context, got %q", got)
	}
	if client.generateCalls != 0 {
		t.Fatalf("language model must not be called for a blank chain")
	}
}
