package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/google/uuid"
)

// MemoryRepository keeps job history in process memory. It is used when no
// DATABASE_URL is configured, so history is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	jobs     map[string]*repository.Job
	segments map[string][]repository.JobSegment
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs:     make(map[string]*repository.Job),
		segments: make(map[string][]repository.JobSegment),
		now:      time.Now,
	}
}

func (r *MemoryRepository) CreateJob(_ context.Context, input repository.CreateJobInput) (*repository.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	j := &repository.Job{
		ID:             uuid.NewString(),
		SourceFilename: input.SourceFilename,
		Status:         repository.JobStatusRunning,
		StartedAt:      input.StartedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.jobs[j.ID] = j
	copied := *j
	return &copied, nil
}

func (r *MemoryRepository) CompleteJob(_ context.Context, input repository.CompleteJobInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[input.JobID]
	if !ok {
		return fmt.Errorf("job %s not found", input.JobID)
	}
	endedAt := input.EndedAt
	j.Status = repository.JobStatusCompleted
	j.ResultFilename = input.ResultFilename
	j.SegmentCount = input.SegmentCount
	j.EmptySegmentCount = input.EmptySegmentCount
	j.DroppedTailMs = input.DroppedTailMs
	j.EndedAt = &endedAt
	j.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) FailJob(_ context.Context, input repository.FailJobInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[input.JobID]
	if !ok {
		return fmt.Errorf("job %s not found", input.JobID)
	}
	endedAt := input.EndedAt
	j.Status = repository.JobStatusFailed
	j.Error = input.Error
	j.EndedAt = &endedAt
	j.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) GetJob(_ context.Context, id string) (*repository.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *j
	return &copied, nil
}

func (r *MemoryRepository) InsertSegment(_ context.Context, input repository.InsertSegmentInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[input.JobID]; !ok {
		return fmt.Errorf("job %s not found", input.JobID)
	}
	for _, s := range r.segments[input.JobID] {
		if s.SegmentIndex == input.SegmentIndex {
			return fmt.Errorf("segment %d of job %s already exists", input.SegmentIndex, input.JobID)
		}
	}
	r.segments[input.JobID] = append(r.segments[input.JobID], repository.JobSegment{
		ID:           uuid.NewString(),
		JobID:        input.JobID,
		SegmentIndex: input.SegmentIndex,
		StartMs:      input.StartMs,
		EndMs:        input.EndMs,
		Content:      input.Content,
		Status:       input.Status,
		Attempts:     input.Attempts,
		CreatedAt:    r.now(),
	})
	return nil
}

func (r *MemoryRepository) ListSegmentsByJobID(_ context.Context, jobID string) ([]repository.JobSegment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := slices.Clone(r.segments[jobID])
	slices.SortFunc(list, func(a, b repository.JobSegment) int {
		return a.SegmentIndex - b.SegmentIndex
	})
	return list, nil
}
