package assessment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Predictor is the external prediction service.
type Predictor interface {
	PredictClinical(ctx context.Context, in ClinicalInput) (*PredictionResponse, error)
}

type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSettled State = "settled"
)

// Snapshot is a consistent copy of the flow's observable state.
type Snapshot struct {
	State  State   `json:"state"`
	Busy   bool    `json:"busy"`
	Result *Result `json:"result,omitempty"`
}

// Outcome describes one settled submission.
type Outcome struct {
	Result      *Result
	Probability float64
	Latency     time.Duration
	Err         error
}

type Option func(*Flow)

// WithObserver registers a callback invoked after every state transition.
func WithObserver(fn func(Snapshot)) Option {
	return func(f *Flow) { f.observer = fn }
}

// WithOutcomeHook registers a callback invoked once per settled submission.
func WithOutcomeHook(fn func(Outcome)) Option {
	return func(f *Flow) { f.onSettled = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// Flow runs submissions against a Predictor and holds the state a page
// renders: idle, pending with the busy flag set, or settled with either a
// result or a queued failure notice.
//
// Overlapping submissions are not deduplicated. Each one clears the result
// when it starts and the last to settle wins.
type Flow struct {
	predictor Predictor
	observer  func(Snapshot)
	onSettled func(Outcome)
	logger    *zap.Logger

	mu      sync.Mutex
	state   State
	busy    bool
	result  *Result
	notices []string
}

func NewFlow(predictor Predictor, opts ...Option) *Flow {
	f := &Flow{
		predictor: predictor,
		logger:    zap.NewNop(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit parses data, calls the predictor and settles the flow. The returned
// error is for callers that need it; page users only ever see FailureNotice.
func (f *Flow) Submit(ctx context.Context, data StepData) (*Result, error) {
	input := data.Input()
	f.begin()
	return f.run(ctx, input)
}

// Begin moves the flow to pending and returns the call that settles it.
// The caller decides where that call runs; it must be invoked exactly once.
func (f *Flow) Begin(data StepData) func(ctx context.Context) (*Result, error) {
	input := data.Input()
	f.begin()
	return func(ctx context.Context) (*Result, error) {
		return f.run(ctx, input)
	}
}

// Start moves the flow to pending before returning and settles it in the
// background. The returned channel is closed once the flow has settled.
func (f *Flow) Start(ctx context.Context, data StepData) <-chan struct{} {
	settle := f.Begin(data)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = settle(ctx)
	}()
	return done
}

func (f *Flow) begin() {
	f.mu.Lock()
	f.state = StatePending
	f.busy = true
	f.result = nil
	snap := f.snapshotLocked()
	f.mu.Unlock()
	f.notify(snap)
}

func (f *Flow) run(ctx context.Context, input ClinicalInput) (*Result, error) {
	start := time.Now()
	var (
		res  *Result
		prob float64
	)
	resp, err := f.predictor.PredictClinical(ctx, input)
	if err == nil {
		res, err = BuildResult(*resp)
		if err == nil {
			prob = *resp.Probability
		}
	}
	latency := time.Since(start)

	f.mu.Lock()
	f.state = StateSettled
	f.busy = false
	if err != nil {
		f.notices = append(f.notices, FailureNotice)
	} else {
		f.result = res
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if err != nil {
		f.logger.Error("analyzing clinical data failed", zap.Error(err), zap.Duration("latency", latency))
	} else {
		f.logger.Info("clinical data analyzed",
			zap.String("classification", res.Classification),
			zap.String("confidence", res.Confidence),
			zap.Duration("latency", latency))
	}

	f.notify(snap)
	if f.onSettled != nil {
		f.onSettled(Outcome{Result: res, Probability: prob, Latency: latency, Err: err})
	}
	return res, err
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// TakeNotifications returns pending user notices and clears them, so each
// notice is delivered once.
func (f *Flow) TakeNotifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	notices := f.notices
	f.notices = nil
	return notices
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{State: f.state, Busy: f.busy, Result: f.result}
}

func (f *Flow) notify(snap Snapshot) {
	if f.observer != nil {
		f.observer(snap)
	}
}
