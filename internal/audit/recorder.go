package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/repository"
	"github.com/rentflow/leasesign/pkg/logger"
)

// RecorderConfig holds configuration for the async audit recorder
type RecorderConfig struct {
	// BufferSize is the size of the async buffer (default: 1000)
	BufferSize int
	// FlushInterval is how often to flush the buffer (default: 5 seconds)
	FlushInterval time.Duration
	// BatchSize is the maximum number of entries per insert batch (default: 100)
	BatchSize int
}

// DefaultRecorderConfig returns default configuration
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
	}
}

// Recorder appends audit entries asynchronously. Recording never blocks the
// caller and a failed flush never surfaces to the signer; entries are the
// one thing in this service allowed to be lost under pressure rather than
// delay a signature.
type Recorder struct {
	config    *RecorderConfig
	repo      repository.AuditLogRepository
	buffer    chan *domain.AuditLogEntry
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// For testing: flush synchronously into memory instead of the repository
	testMode    bool
	testEntries []*domain.AuditLogEntry
	testMu      sync.Mutex
}

// NewRecorder creates a new audit recorder and starts its background worker
func NewRecorder(repo repository.AuditLogRepository, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Recorder{
		config: config,
		repo:   repo,
		buffer: make(chan *domain.AuditLogEntry, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record appends an audit entry (non-blocking). Missing id/timestamp fields
// are filled in.
func (r *Recorder) Record(entry *domain.AuditLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.ActorID == "" {
		entry.ActorID = domain.SystemActor
	}

	r.testMu.Lock()
	if r.testMode {
		r.testEntries = append(r.testEntries, entry)
		r.testMu.Unlock()
		return
	}
	r.testMu.Unlock()

	select {
	case r.buffer <- entry:
	default:
		// Buffer full, drop entry rather than block the request path
		logger.Warn("audit buffer full, dropping entry", zap.String("action", entry.Action))
	}
}

// Close gracefully shuts down the recorder, flushing remaining entries. The
// buffer closes before the context cancels so the worker drains everything
// already queued.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.buffer)
		r.wg.Wait()
		r.cancel()
	})
	return nil
}

// SetTestMode enables test mode which collects entries synchronously
func (r *Recorder) SetTestMode(enabled bool) {
	r.testMu.Lock()
	defer r.testMu.Unlock()
	r.testMode = enabled
	if enabled {
		r.testEntries = make([]*domain.AuditLogEntry, 0)
	}
}

// TestEntries returns collected entries (only meaningful in test mode)
func (r *Recorder) TestEntries() []*domain.AuditLogEntry {
	r.testMu.Lock()
	defer r.testMu.Unlock()
	result := make([]*domain.AuditLogEntry, len(r.testEntries))
	copy(result, r.testEntries)
	return result
}

// worker batches buffered entries and flushes them periodically
func (r *Recorder) worker() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*domain.AuditLogEntry, 0, r.config.BatchSize)

	for {
		select {
		case entry, ok := <-r.buffer:
			if !ok {
				if len(batch) > 0 {
					r.flush(batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= r.config.BatchSize {
				r.flush(batch)
				batch = make([]*domain.AuditLogEntry, 0, r.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]*domain.AuditLogEntry, 0, r.config.BatchSize)
			}
		case <-r.ctx.Done():
			if len(batch) > 0 {
				r.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch through the repository
func (r *Recorder) flush(entries []*domain.AuditLogEntry) {
	if r.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.repo.InsertBatch(ctx, entries); err != nil {
		// Audit writes must never fail the application
		logger.Error("failed to flush audit batch",
			zap.Int("batch_size", len(entries)),
			zap.Error(err),
		)
	}
}
