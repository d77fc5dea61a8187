package hls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hls-audio-server/internal/platform/metrics"

	"github.com/jonboulle/clockwork"
)

// Producer supplies the encoded payload of the next segment. The payload must not
// carry an ID3 tag; the coordinator prepends the timing tag itself.
// Produce may block; it is never called while the shared state is locked.
type Producer interface {
	Produce(ctx context.Context) ([]byte, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context) ([]byte, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// ProducerFailurePolicy decides what a tick does when the producer fails.
type ProducerFailurePolicy int

const (
	// SubstituteEmpty publishes the segment with an empty payload so the timeline keeps advancing.
	SubstituteEmpty ProducerFailurePolicy = iota
	// Abort stops the tick loop and returns the producer error from Run.
	Abort
)

func (p ProducerFailurePolicy) String() string {
	switch p {
	case SubstituteEmpty:
		return "empty"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("ProducerFailurePolicy(%d)", int(p))
	}
}

// ParseProducerFailurePolicy parses "empty" or "abort".
func ParseProducerFailurePolicy(s string) (ProducerFailurePolicy, error) {
	switch strings.ToLower(s) {
	case "", "empty":
		return SubstituteEmpty, nil
	case "abort":
		return Abort, nil
	default:
		return 0, fmt.Errorf("%w: unknown producer failure policy %q", ErrInvalidConfig, s)
	}
}

// TickResult describes what a single tick changed.
type TickResult struct {
	Added   string
	Evicted string
	// Grace is how long Evicted stays fetchable. Zero when nothing was evicted.
	Grace time.Duration
	// Timestamp is the presentation timestamp stamped into Added.
	Timestamp uint64
}

// Coordinator advances the stream by one segment per tick.
type Coordinator struct {
	cfg      Config
	state    *SharedState
	purger   *PurgeScheduler
	producer Producer
	clock    clockwork.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics

	// FailurePolicy applies when the producer returns an error. Defaults to SubstituteEmpty.
	FailurePolicy ProducerFailurePolicy
}

// NewCoordinator returns a coordinator feeding state from producer.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewCoordinator(cfg Config, state *SharedState, producer Producer, clock clockwork.Clock, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		cfg:      cfg,
		state:    state,
		purger:   NewPurgeScheduler(state, clock, log, m),
		producer: producer,
		clock:    clock,
		log:      log,
		metrics:  m,
	}
}

// Purger returns the scheduler that removes evicted segments.
func (c *Coordinator) Purger() *PurgeScheduler {
	return c.purger
}

// Run ticks every segment duration until ctx is done. The first tick fires after one full interval.
// Run returns nil when ctx is cancelled and the producer error when FailurePolicy is Abort.
func (c *Coordinator) Run(ctx context.Context) error {
	interval := time.Duration(c.cfg.SegmentDuration * float64(time.Second))
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info("segment loop started",
		slog.Int("segments_to_keep", c.cfg.SegmentsToKeep),
		slog.Float64("segment_duration", c.cfg.SegmentDuration),
		slog.String("failure_policy", c.FailurePolicy.String()))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("segment loop stopped", slog.Int("pending_purges", c.purger.Stop()))
			return nil
		case <-ticker.Chan():
			if _, err := c.Tick(ctx); err != nil {
				c.purger.Stop()
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Tick adds one segment: it pulls a payload, then under the state lock adds the segment
// to the playlist, stores the tagged payload, regenerates the document, and advances the
// presentation clock. An evicted segment is purged once its grace period has passed.
func (c *Coordinator) Tick(ctx context.Context) (TickResult, error) {
	payload, err := c.produce(ctx)
	if err != nil {
		return TickResult{}, err
	}

	var (
		res       TickResult
		evicted   bool
		tagErr    error
		window    float64
		windowLen int
		mediaSeq  uint64
	)
	c.state.Do(func(st *State) {
		pts := st.Timestamp.Value()
		tagged, err := Tag(pts, payload)
		if err != nil {
			tagErr = err
			return
		}

		res.Added, res.Evicted, evicted = st.Playlist.AddSegment()
		res.Timestamp = pts
		st.Store.Insert(res.Added, tagged)
		st.Document = st.Playlist.Document()

		windowLen = st.Playlist.Len()
		mediaSeq = st.Playlist.MediaSequence()
		window = AvailabilityWindow(windowLen, c.cfg.SegmentDuration)
		st.Timestamp.Advance(window)
	})
	if tagErr != nil {
		return TickResult{}, fmt.Errorf("tag segment: %w", tagErr)
	}

	c.log.Debug("segment added",
		slog.String("segment", res.Added),
		slog.Uint64("media_sequence", mediaSeq),
		slog.Int("window", windowLen),
		slog.Uint64("pts", res.Timestamp))
	if c.metrics != nil {
		c.metrics.IncTicks()
		c.metrics.SetMediaSequence(mediaSeq)
		c.metrics.SetWindowSegments(windowLen)
	}

	if evicted {
		res.Grace = time.Duration(window * float64(time.Second))
		c.purger.Schedule(res.Evicted, res.Grace)
		c.log.Debug("segment evicted",
			slog.String("segment", res.Evicted),
			slog.Duration("grace", res.Grace))
		if c.metrics != nil {
			c.metrics.IncSegmentsEvicted()
		}
	}
	return res, nil
}

func (c *Coordinator) produce(ctx context.Context) ([]byte, error) {
	payload, err := c.producer.Produce(ctx)
	if err == nil {
		return payload, nil
	}
	if c.metrics != nil {
		c.metrics.IncProducerErrors()
	}
	if c.FailurePolicy == Abort {
		c.log.Error("producer failed, stopping segment loop", slog.String("error", err.Error()))
		return nil, fmt.Errorf("produce segment: %w", err)
	}
	c.log.Error("producer failed, publishing empty segment", slog.String("error", err.Error()))
	return nil, nil
}
