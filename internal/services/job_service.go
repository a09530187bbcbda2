package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/types"
	"github.com/relaychat/relay-backend/internal/utils"
)

// ChainProcessPayload is the job_run payload for chain processing. MessageID
// tracks the newest message of the burst; each debounced enqueue overwrites it.
type ChainProcessPayload struct {
	AuthorID    uuid.UUID `json:"author_id"`
	ContextKind string    `json:"context_kind"`
	ContextID   uuid.UUID `json:"context_id"`
	MessageID   uuid.UUID `json:"message_id"`
}

type JobService interface {
	// EnqueueChainProcess schedules chain processing for (author, context),
	// delayed by the debounce window. If a queued run already exists its
	// run_after is pushed forward and its payload repointed at the newest
	// message, so bursts collapse into one run.
	EnqueueChainProcess(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, contextKind string, contextID uuid.UUID, messageID uuid.UUID) (*types.JobRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs repos.JobRunRepo

	processDelay time.Duration
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, jobRepo repos.JobRunRepo) JobService {
	log := baseLog.With("service", "JobService")
	return &jobService{
		db:           db,
		log:          log,
		jobs:         jobRepo,
		processDelay: utils.GetEnvAsDuration("CHAIN_PROCESS_DELAY", 48*time.Second, log),
	}
}

func (s *jobService) EnqueueChainProcess(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, contextKind string, contextID uuid.UUID, messageID uuid.UUID) (*types.JobRun, error) {
	if authorID == uuid.Nil || contextID == uuid.Nil || messageID == uuid.Nil {
		return nil, fmt.Errorf("author, context and message ids required")
	}

	payload, err := json.Marshal(ChainProcessPayload{
		AuthorID:    authorID,
		ContextKind: contextKind,
		ContextID:   contextID,
		MessageID:   messageID,
	})
	if err != nil {
		return nil, err
	}
	runAfter := time.Now().Add(s.processDelay)

	existing, err := s.jobs.GetRunnableForEntity(ctx, tx, authorID, types.JobTypeChainProcess, contextKind, contextID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = s.jobs.UpdateFields(ctx, tx, existing.ID, map[string]interface{}{
			"run_after": runAfter,
			"payload":   datatypes.JSON(payload),
		})
		if err != nil {
			return nil, err
		}
		s.log.Debug("Chain job debounced", "job_id", existing.ID, "context_id", contextID)
		existing.RunAfter = &runAfter
		existing.Payload = datatypes.JSON(payload)
		return existing, nil
	}

	created, err := s.jobs.Create(ctx, tx, []*types.JobRun{{
		OwnerUserID: authorID,
		JobType:     types.JobTypeChainProcess,
		EntityType:  contextKind,
		EntityID:    &contextID,
		Status:      types.JobStatusQueued,
		Stage:       "pending",
		RunAfter:    &runAfter,
		Payload:     datatypes.JSON(payload),
	}})
	if err != nil {
		return nil, err
	}
	s.log.Debug("Chain job enqueued", "job_id", created[0].ID, "context_id", contextID)
	return created[0], nil
}

func (s *jobService) GetByID(ctx context.Context, id uuid.UUID) (*types.JobRun, error) {
	return s.jobs.GetByID(ctx, nil, id)
}
