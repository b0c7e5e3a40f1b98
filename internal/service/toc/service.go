package toc

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/frankbria/auto-author/internal/domain"
)

type bookStore interface {
	ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error)
	ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error)
}

type auditLogger interface {
	Log(ctx context.Context, record domain.AuditRecord) error
}

type auditReader interface {
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type changePublisher interface {
	PublishTOCChanged(ctx context.Context, change domain.TOCChange) error
}

type metricsRecorder interface {
	ObserveMutation(action, outcome string, attempts int)
	IncConflict(action string)
	IncAuditDropped()
	AddPurged(n int)
}

// SystemActor is recorded for mutations started without a user, such as retention sweeps.
const SystemActor = "system:retention"

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Config tunes the optimistic retry loop.
type Config struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	Multiplier       float64
	Jitter           float64
	OperationTimeout time.Duration
}

// DefaultConfig returns the retry settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      5,
		InitialBackoff:   20 * time.Millisecond,
		MaxBackoff:       500 * time.Millisecond,
		Multiplier:       2,
		Jitter:           0.2,
		OperationTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		c.Jitter = d.Jitter
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = d.OperationTimeout
	}
	return c
}

// Service runs TOC mutations under optimistic concurrency control.
type Service struct {
	store     bookStore
	commit    CommitStrategy
	recorder  *Recorder
	history   auditReader
	publisher changePublisher
	metrics   metricsRecorder
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sets the sink for committed change notifications.
func WithPublisher(p changePublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides chapter id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a new TOC service.
func NewService(
	log *slog.Logger,
	store bookStore,
	commit CommitStrategy,
	recorder *Recorder,
	history auditReader,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		store:     store,
		commit:    commit,
		recorder:  recorder,
		history:   history,
		publisher: noopPublisher{},
		metrics:   noopMetrics{},
		cfg:       cfg.withDefaults(),
		log:       log.With("service", "toc"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = newULIDGenerator(s.now)
	}
	return s
}

// newULIDGenerator returns a goroutine-safe monotonic ULID source.
func newULIDGenerator(now func() time.Time) func() string {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(now()), entropy).String()
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishTOCChanged(context.Context, domain.TOCChange) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ObserveMutation(string, string, int) {}
func (noopMetrics) IncConflict(string)                  {}
func (noopMetrics) IncAuditDropped()                    {}
func (noopMetrics) AddPurged(int)                       {}

// trimOrNil trims whitespace. Returns nil if result is empty.
func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ptr[T any](v T) *T {
	return &v
}
