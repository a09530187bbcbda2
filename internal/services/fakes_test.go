package services

import (
	"context"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
)

// fakeOpenAI scripts the language model boundary for unit tests.
type fakeOpenAI struct {
	embedFn    func(inputs []string, mode EmbedMode) ([][]float32, error)
	generateFn func(system, user string, temperature float64) (string, error)

	embedCalls    int
	generateCalls int
	lastEmbedMode EmbedMode
}

func (f *fakeOpenAI) Embed(_ context.Context, inputs []string, mode EmbedMode) ([][]float32, error) {
	f.embedCalls++
	f.lastEmbedMode = mode
	if f.embedFn == nil {
		out := make([][]float32, len(inputs))
		for i := range out {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	}
	return f.embedFn(inputs, mode)
}

func (f *fakeOpenAI) GenerateText(_ context.Context, system, user string, temperature float64) (string, error) {
	f.generateCalls++
	if f.generateFn == nil {
		return "", nil
	}
	return f.generateFn(system, user, temperature)
}

// fakeMessageRepo records embedding writes and serves scripted matches.
type fakeMessageRepo struct {
	repos.MessageRepo

	matches  []*types.MessageMatch
	matchErr error

	wroteID      *uuid.UUID
	wroteContext string
	wroteChain   string
	clearedIDs   []uuid.UUID
}

func (f *fakeMessageRepo) WriteEmbedded(_ context.Context, _ *gorm.DB, id uuid.UUID, _ pgvector.Vector, contextText string, formattedChain string) error {
	f.wroteID = &id
	f.wroteContext = contextText
	f.wroteChain = formattedChain
	return nil
}

func (f *fakeMessageRepo) ClearEmbedded(_ context.Context, _ *gorm.DB, ids []uuid.UUID) error {
	f.clearedIDs = append(f.clearedIDs, ids...)
	return nil
}

func (f *fakeMessageRepo) MatchByEmbedding(_ context.Context, _ *gorm.DB, _ pgvector.Vector, _ float64, _ int) ([]*types.MessageMatch, error) {
	return f.matches, f.matchErr
}

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
	err   error
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*types.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeChannelRepo struct {
	channels map[uuid.UUID]*types.Channel
	err      error
}

func (f *fakeChannelRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels[id], nil
}

func (f *fakeChannelRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*types.Channel{}
	for _, id := range ids {
		if ch, ok := f.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}
