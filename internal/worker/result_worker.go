package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes graded attempts to
// PostgreSQL in batches. Once an attempt is durable its Redis draft buffer
// is deleted.
type ResultWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "result_worker").Logger(),
	}
}

type resultAnswer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
	Correct    *bool  `json:"correct"`
}

type resultPayload struct {
	AttemptID     string         `json:"attempt_id"`
	AssignmentID  string         `json:"assignment_id"`
	StudentID     int            `json:"student_id"`
	EarnedPoints  int            `json:"earned_points"`
	Percent       int            `json:"percent"`
	AutoSubmitted bool           `json:"auto_submitted"`
	FinishedAt    time.Time      `json:"finished_at"`
	Answers       []resultAnswer `json:"answers"`
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*resultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// flushSafe writes the batch, falling back to per-attempt persistence when
// the bulk update fails. Unrecoverable items go back on the queue.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*resultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkPersist(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk result update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).
					Str("attempt_id", p.AttemptID).
					Msg("Single persist failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	w.bulkClearDrafts(ctx, batch)
	w.log.Info().Int("count", len(batch)).Msg("Results persisted")
}

// bulkPersist completes every attempt in one UPDATE, then writes each
// attempt's final answers with their correctness flags.
func (w *ResultWorker) bulkPersist(ctx context.Context, batch []*resultPayload) error {
	n := len(batch)

	ids := make([]string, 0, n)
	earned := make([]int, 0, n)
	percent := make([]int, 0, n)
	autoSubmitted := make([]bool, 0, n)
	finishedAt := make([]time.Time, 0, n)

	for _, p := range batch {
		if _, err := uuid.Parse(p.AttemptID); err != nil {
			return err
		}
		ids = append(ids, p.AttemptID)
		earned = append(earned, p.EarnedPoints)
		percent = append(percent, p.Percent)
		autoSubmitted = append(autoSubmitted, p.AutoSubmitted)
		finishedAt = append(finishedAt, p.FinishedAt)
	}

	if err := w.attemptRepo.CompleteBatch(ctx, ids, earned, percent, autoSubmitted, finishedAt); err != nil {
		return err
	}

	for _, p := range batch {
		if err := w.persistAnswers(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (w *ResultWorker) persistAnswers(ctx context.Context, p *resultPayload) error {
	if len(p.Answers) == 0 {
		return nil
	}

	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	questionIDs := make([]string, 0, len(p.Answers))
	values := make([]string, 0, len(p.Answers))
	corrects := make([]*bool, 0, len(p.Answers))
	for _, a := range p.Answers {
		questionIDs = append(questionIDs, a.QuestionID)
		values = append(values, a.Value)
		corrects = append(corrects, a.Correct)
	}
	return w.attemptRepo.UpsertAnswers(ctx, attemptID, questionIDs, values, corrects)
}

// bulkClearDrafts deletes the Redis autosave buffers for persisted attempts.
func (w *ResultWorker) bulkClearDrafts(ctx context.Context, batch []*resultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		key := config.CacheKey.StudentDraftAnswersKey(p.AssignmentID, p.StudentID)
		pipe.Del(ctx, key)
	}

	_, _ = pipe.Exec(ctx)
}

func (w *ResultWorker) persistSingle(ctx context.Context, p *resultPayload) error {
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	if err := w.attemptRepo.Complete(ctx, attemptID, p.EarnedPoints, p.Percent, p.AutoSubmitted, p.FinishedAt); err != nil {
		return err
	}
	if err := w.persistAnswers(ctx, p); err != nil {
		return err
	}

	w.rdb.Del(ctx, config.CacheKey.StudentDraftAnswersKey(p.AssignmentID, p.StudentID))
	return nil
}
