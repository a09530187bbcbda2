package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
	"github.com/relaychat/relay-backend/internal/utils"
)

// SearchService embeds a free-text query, runs the vector similarity query
// and hydrates the matches with sender and channel names. Failures surface as
// an empty result list, never an error to the caller.
type SearchService interface {
	Search(ctx context.Context, query string) []*types.SearchResult
}

type searchService struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo
	users    repos.UserRepo
	channels repos.ChannelRepo
	openai   OpenAIClient

	threshold     float64
	matchCount    int
	includeChains bool
}

func NewSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	userRepo repos.UserRepo,
	channelRepo repos.ChannelRepo,
	openai OpenAIClient,
) SearchService {
	log := baseLog.With("service", "SearchService")
	return &searchService{
		db:            db,
		log:           log,
		messages:      messageRepo,
		users:         userRepo,
		channels:      channelRepo,
		openai:        openai,
		threshold:     utils.GetEnvAsFloat("SEARCH_MATCH_THRESHOLD", 0.3, log),
		matchCount:    utils.GetEnvAsInt("SEARCH_MATCH_COUNT", 8, log),
		includeChains: utils.GetEnv("SEARCH_INCLUDE_CHAINS", "true", log) == "true",
	}
}

func (s *searchService) Search(ctx context.Context, query string) []*types.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*types.SearchResult{}
	}

	vectors, err := s.openai.Embed(ctx, []string{query}, EmbedModeQuery)
	if err != nil || len(vectors) != 1 {
		s.log.Warn("Query embedding failed", "error", err)
		return []*types.SearchResult{}
	}

	matches, err := s.messages.MatchByEmbedding(ctx, nil, pgvector.NewVector(vectors[0]), s.threshold, s.matchCount)
	if err != nil {
		s.log.Warn("Similarity query failed", "error", err)
		return []*types.SearchResult{}
	}
	if len(matches) == 0 {
		return []*types.SearchResult{}
	}

	users, channels, err := s.hydrate(ctx, matches)
	if err != nil {
		s.log.Warn("Match hydration failed", "error", err)
		return []*types.SearchResult{}
	}

	// Results keep the database's similarity order; no re-sort here.
	out := make([]*types.SearchResult, 0, len(matches))
	for _, m := range matches {
		res := &types.SearchResult{
			MessageID:  m.MessageID,
			Content:    m.Content,
			Similarity: m.Similarity,
			SenderName: users[m.AuthorID].SenderName(),
		}
		if m.ChannelID != nil {
			if ch, ok := channels[*m.ChannelID]; ok {
				name := ch.Name
				res.ChannelName = &name
			}
		}
		if s.includeChains {
			res.FormattedChain = m.FormattedChain
		}
		out = append(out, res)
	}
	return out
}

func (s *searchService) hydrate(ctx context.Context, matches []*types.MessageMatch) (map[uuid.UUID]*types.User, map[uuid.UUID]*types.Channel, error) {
	userIDs := make([]uuid.UUID, 0, len(matches))
	channelIDs := make([]uuid.UUID, 0, len(matches))
	seenUsers := map[uuid.UUID]bool{}
	seenChannels := map[uuid.UUID]bool{}
	for _, m := range matches {
		if !seenUsers[m.AuthorID] {
			seenUsers[m.AuthorID] = true
			userIDs = append(userIDs, m.AuthorID)
		}
		if m.ChannelID != nil && !seenChannels[*m.ChannelID] {
			seenChannels[*m.ChannelID] = true
			channelIDs = append(channelIDs, *m.ChannelID)
		}
	}

	users := map[uuid.UUID]*types.User{}
	channels := map[uuid.UUID]*types.Channel{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.users.GetByIDs(gctx, nil, userIDs)
		if err != nil {
			return err
		}
		for _, u := range rows {
			users[u.ID] = u
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.channels.GetByIDs(gctx, nil, channelIDs)
		if err != nil {
			return err
		}
		for _, ch := range rows {
			channels[ch.ID] = ch
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return users, channels, nil
}
