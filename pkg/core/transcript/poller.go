// Package transcript polls for a call transcript after the call ends. The
// backend produces transcripts asynchronously, so the poller retries on a
// fixed interval until the conversation shows up or the attempt budget runs
// out.
package transcript

import (
	"context"
	"log/slog"
	"sync"
	"time"

	vox "github.com/vango-go/vox-console/sdk"
)

const (
	DefaultMaxAttempts = 30
	DefaultInterval    = time.Second
)

// State is the lifecycle state of a polling run.
type State int

const (
	StateNotStarted State = iota
	StatePolling
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher retrieves a transcript by document id.
type Fetcher interface {
	FetchTranscript(ctx context.Context, documentID string) ([]vox.TranscriptMessage, error)
}

// Snapshot is a point-in-time view of a polling run.
type Snapshot struct {
	State       State
	Attempts    int
	MaxAttempts int
	Messages    []vox.TranscriptMessage
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval sets the delay between attempts.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts sets the attempt budget per run.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Poller runs transcript polling. Start begins a run; a later Start or Reset
// invalidates the previous run entirely, so a stale in-flight attempt can
// never overwrite newer state.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      State
	attempts   int
	messages   []vox.TranscriptMessage
	updates    chan Snapshot
}

// NewPoller returns a Poller that fetches through the given fetcher.
func NewPoller(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		updates:     make(chan Snapshot, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current run state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	messages := make([]vox.TranscriptMessage, len(p.messages))
	copy(messages, p.messages)
	return Snapshot{
		State:       p.state,
		Attempts:    p.attempts,
		MaxAttempts: p.maxAttempts,
		Messages:    messages,
	}
}

// Updates yields a best-effort snapshot after every state change. Slow
// consumers miss intermediate snapshots, never the lock-protected state.
func (p *Poller) Updates() <-chan Snapshot {
	return p.updates
}

// Start begins a new polling run for documentID, cancelling any run already
// in flight. Each run gets the full attempt budget: a manual retry after a
// failed run starts over from attempt one. The first attempt fires
// immediately; the interval applies between attempts.
func (p *Poller) Start(ctx context.Context, documentID string) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StatePolling
	p.attempts = 0
	p.messages = nil
	p.publishLocked()
	p.mu.Unlock()

	go p.run(runCtx, gen, documentID)
}

// Reset cancels any in-flight run and returns to the not-started state.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.state = StateNotStarted
	p.attempts = 0
	p.messages = nil
	p.publishLocked()
}

func (p *Poller) run(ctx context.Context, gen uint64, documentID string) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
			}
		}

		messages, err := p.fetcher.FetchTranscript(ctx, documentID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Debug("transcript attempt failed", "attempt", attempt, "error", err)
		}

		p.mu.Lock()
		if p.generation != gen {
			p.mu.Unlock()
			return
		}
		p.attempts = attempt
		if err == nil && len(messages) > 0 {
			p.state = StateReady
			p.messages = messages
			p.publishLocked()
			p.mu.Unlock()
			return
		}
		if attempt == p.maxAttempts {
			p.state = StateFailed
		}
		p.publishLocked()
		p.mu.Unlock()
	}
}

func (p *Poller) publishLocked() {
	select {
	case p.updates <- p.snapshotLocked():
	default:
	}
}
