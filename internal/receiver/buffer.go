package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patternforge/patternforge/internal/store"
	"github.com/patternforge/patternforge/pkg/forge/solve"
)

// rows accumulates the observed values for one attribute key, split by
// classification, the way BatchBuffer accumulates one signal's pending
// writes before a flush.
type rows struct {
	include []string
	exclude []string
}

// AttributeBuffer batches attribute observations per key and periodically
// solves+persists a session for each key with enough accumulated rows,
// following the mutex/size-threshold/timer-flush shape of the teacher's
// clickhouse.BatchBuffer: Observe appends and flushes eagerly past
// batchSize, a background goroutine also flushes on a timer, and Close
// drains whatever remains.
type AttributeBuffer struct {
	mu   sync.Mutex
	rows map[string]*rows

	batchSize     int
	flushInterval time.Duration

	solveCfg solve.Config
	store    store.Storage
	logger   *slog.Logger

	flushTimer *time.Timer
	stopCh     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewAttributeBuffer creates a buffer that solves with solveCfg and saves
// results into st every time a key's row count reaches cfg.BufferSize or
// cfg.FlushIntervalSec elapses.
func NewAttributeBuffer(st store.Storage, solveCfg solve.Config, cfg Config, logger *slog.Logger) *AttributeBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	b := &AttributeBuffer{
		rows:          make(map[string]*rows),
		batchSize:     cfg.BufferSize,
		flushInterval: cfg.flushInterval(),
		solveCfg:      solveCfg,
		store:         st,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
	if b.batchSize <= 0 {
		b.batchSize = 1000
	}
	b.flushTimer = time.NewTimer(b.flushInterval)
	b.wg.Add(1)
	go b.flushLoop()
	return b
}

// Observe records one attribute value for key, bad marking whether it came
// from the anomalous/"bad" series (include) or the normal/"good" series
// (exclude).
func (b *AttributeBuffer) Observe(key, value string, bad bool) {
	if value == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rows[key]
	if !ok {
		r = &rows{}
		b.rows[key] = r
	}
	if bad {
		r.include = append(r.include, value)
	} else {
		r.exclude = append(r.exclude, value)
	}

	if len(r.include)+len(r.exclude) >= b.batchSize {
		if err := b.flushKeyLocked(key); err != nil {
			b.logger.Error("failed to flush attribute buffer", "key", key, "error", err)
		}
	}
}

func (b *AttributeBuffer) flushLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.flushTimer.C:
			b.mu.Lock()
			_ = b.flushAllLocked()
			b.mu.Unlock()
			b.flushTimer.Reset(b.flushInterval)
		case <-b.stopCh:
			return
		}
	}
}

func (b *AttributeBuffer) flushAllLocked() error {
	var errs []error
	for key := range b.rows {
		if err := b.flushKeyLocked(key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("flush errors: %v", errs)
	}
	return nil
}

// flushKeyLocked must hold b.mu. It requires at least one include row
// (solve.Solve returns an empty Result for an empty include set, so there
// is nothing worth saving) before it runs the pipeline,
// so a key with only "good" observations simply waits for its first "bad"
// one.
func (b *AttributeBuffer) flushKeyLocked(key string) error {
	r, ok := b.rows[key]
	if !ok || len(r.include) == 0 {
		return nil
	}

	include, exclude := r.include, r.exclude
	delete(b.rows, key)

	b.mu.Unlock()
	err := b.solveAndSave(key, include, exclude)
	b.mu.Lock()

	if err != nil {
		b.logger.Error("solve failed for receiver buffer", "key", key, "error", err)
		return err
	}
	b.logger.Info("solved receiver buffer", "key", key, "include", len(include), "exclude", len(exclude))
	return nil
}

type receiverSolveRequest struct {
	AttributeKey string   `json:"attribute_key"`
	Include      []string `json:"include"`
	Exclude      []string `json:"exclude"`
}

func (b *AttributeBuffer) solveAndSave(key string, include, exclude []string) error {
	result, err := solve.Solve(include, exclude, b.solveCfg)
	if err != nil {
		return fmt.Errorf("solving attribute %q: %w", key, err)
	}

	req := receiverSolveRequest{AttributeKey: key, Include: include, Exclude: exclude}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sess := &store.Session{
		ID:          sessionIDFor(key, now),
		Description: fmt.Sprintf("receiver: %s", key),
		Mode:        store.ModeSingle,
		CreatedAt:   now,
		Request:     reqJSON,
		Result:      resultJSON,
	}
	return b.store.SaveSession(context.Background(), sess)
}

// sessionIDFor mints a store.ValidateID-legal id from an attribute key that
// may contain dots or other characters the id regex rejects (lowercase
// alphanumeric and hyphens only).
func sessionIDFor(key string, t time.Time) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "attr"
	}
	return fmt.Sprintf("recv-%s-%d", slug, t.UnixNano())
}

// Close stops the flush loop and drains any remaining buffered rows.
func (b *AttributeBuffer) Close(ctx context.Context) error {
	var finalErr error
	b.closeOnce.Do(func() {
		close(b.stopCh)

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			b.logger.Warn("receiver flush loop did not stop within deadline")
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		finalErr = b.flushAllLocked()
	})
	return finalErr
}
