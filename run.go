package fmsolvers

import (
	"context"
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a Run.
type Status uint8

const (
	// Initialized runs have not taken a step yet.
	Initialized Status = iota + 1
	// Stepping runs have taken at least one step.
	Stepping
	// Completed runs reached t = 0.
	Completed
	// Failed runs stopped on an error and hold no usable sample.
	Failed
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		panic(fmt.Sprintf("unknown run status %d", s))
	}
}

// StepRecord summarizes one completed step.
type StepRecord struct {
	Run         uuid.UUID
	Index       int
	From, To    float64
	Order       int
	Evaluations int     // cumulative model calls
	Velocity    float64 // norm of the velocity at (sample, From)
	Denoised    float64 // norm of the clean-data prediction at From
	Sample      *Tensor // sample at To
	Elapsed     time.Duration
}

// Run is a single sampling trajectory. It owns the sample and the history.
// Apart from Stop, its methods must be called from one goroutine.
type Run struct {
	ID       uuid.UUID
	sampler  *Sampler
	cond     Conditioning
	state    *Tensor
	history  *History
	status   Status
	step     int
	nfe      int
	err      error
	stopChan chan bool
	histChan chan<- StepRecord
	written  chan struct{}
	started  time.Time
	lastLog  time.Time
	logger   kitlog.Logger
}

// Run samples from x (noise at t = 1) down to t = 0 and returns the clean sample.
// The input tensor is not modified.
func (s *Sampler) Run(ctx context.Context, x *Tensor, cond Conditioning) (*Tensor, error) {
	r, err := s.NewRun(x, cond)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx)
}

// NewRun prepares a run from the initial noise x.
func (s *Sampler) NewRun(x *Tensor, cond Conditioning) (*Run, error) {
	if x == nil || x.Len() == 0 {
		return nil, &ConfigError{Field: "sample", Value: nil, Reason: "an initial sample is required"}
	}
	if !x.IsFinite() {
		return nil, &NonFiniteStateError{Step: 0, Order: 0, From: 1, To: 1}
	}
	id := uuid.New()
	return &Run{
		ID:       id,
		sampler:  s,
		cond:     cond,
		state:    x.Clone(),
		history:  NewHistory(s.conf.Order),
		status:   Initialized,
		stopChan: make(chan bool, 1),
		logger:   kitlog.With(s.logger, "run", id.String()),
	}, nil
}

// Status returns the lifecycle state.
func (r *Run) Status() Status {
	return r.status
}

// StepIndex returns the number of steps taken.
func (r *Run) StepIndex() int {
	return r.step
}

// Evaluations returns the number of model calls so far.
func (r *Run) Evaluations() int {
	return r.nfe
}

// Err returns the error that failed the run, if any.
func (r *Run) Err() error {
	return r.err
}

// Sample returns a copy of the current sample, or nil once the run failed.
func (r *Run) Sample() *Tensor {
	if r.status == Failed {
		return nil
	}
	return r.state.Clone()
}

// Stop requests the run to abort before its next step. It is safe to call from any goroutine.
func (r *Run) Stop() {
	select {
	case r.stopChan <- true:
	default:
	}
}

// LogStatus logs the progress of the run.
func (r *Run) LogStatus() {
	r.logger.Log("level", "info", "subsys", "sampler", "status", r.status, "step", r.step, "of", r.sampler.conf.NumSteps, "nfe", r.nfe)
}

// Execute steps the run to completion.
func (r *Run) Execute(ctx context.Context) (*Tensor, error) {
	for r.status != Completed {
		if err := r.Step(ctx); err != nil {
			return nil, err
		}
	}
	return r.state.Clone(), nil
}

// Step advances the run by one schedule interval.
func (r *Run) Step(ctx context.Context) error {
	switch r.status {
	case Completed:
		return nil
	case Failed:
		return r.err
	case Initialized:
		r.start()
	}
	select {
	case <-r.stopChan:
		return r.fail(ErrStopped)
	default:
	}
	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("%w: %w", ErrStopped, err))
	}

	conf := r.sampler.conf
	i := r.step
	from, to := r.sampler.schedule.Interval(i)
	v, err := r.evaluate(ctx, r.state, from)
	if err != nil {
		return r.fail(err)
	}
	cur := r.history.Push(from, v, r.state)
	order := EffectiveOrder(conf.Order, i, conf.NumSteps-i)

	var next *Tensor
	if from == to {
		r.logger.Log("level", "warning", "subsys", "solver", "step", i, "t", from, "message", "degenerate step, sample carried forward")
		next = r.state.Clone()
	} else {
		next, err = r.sampler.updater.Advance(ctx, Step{
			Index:   i,
			Sample:  r.state,
			S:       from,
			T:       to,
			Order:   order,
			History: r.history.Entries(),
			Eval:    r.evaluate,
		})
		if err != nil {
			return r.fail(err)
		}
	}
	if next == nil || !next.IsFinite() {
		return r.fail(&NonFiniteStateError{Step: i, Order: order, From: from, To: to})
	}
	r.state = next
	r.step++

	if r.histChan != nil {
		r.histChan <- StepRecord{
			Run: r.ID, Index: i, From: from, To: to, Order: order, Evaluations: r.nfe,
			Velocity: v.Norm(), Denoised: cur.Denoised.Norm(), Sample: next.Clone(), Elapsed: time.Since(r.started),
		}
	}
	if conf.StatusInterval > 0 && time.Since(r.lastLog) >= conf.StatusInterval {
		r.lastLog = time.Now()
		r.LogStatus()
	}
	if r.step == conf.NumSteps {
		r.finish()
	}
	return nil
}

// evaluate calls the model and validates and rounds its output.
func (r *Run) evaluate(ctx context.Context, x *Tensor, t float64) (*Tensor, error) {
	v, err := r.sampler.model.Velocity(ctx, x, t, r.cond)
	r.nfe++
	if err == nil && v != nil {
		// Values beyond the precision's range round to ±Inf and are rejected below.
		v = r.sampler.conf.Precision.Round(v.Clone())
	}
	if err == nil {
		err = checkVelocity(x, v)
	}
	if err != nil {
		return nil, &ModelEvaluationError{Step: r.step, T: t, Err: err}
	}
	return v, nil
}

func (r *Run) start() {
	r.status = Stepping
	r.started = time.Now()
	r.lastLog = r.started
	r.history.Clear()
	if exp := r.sampler.export; !exp.IsUseless() {
		ch := make(chan StepRecord, 1000) // a 1k entry buffer
		r.histChan = ch
		r.written = make(chan struct{})
		go func() {
			defer close(r.written)
			if err := StreamSteps(exp, r.ID, r.sampler.conf, ch); err != nil {
				r.logger.Log("level", "error", "subsys", "export", "err", err)
			}
		}()
	}
	r.logger.Log("level", "info", "subsys", "sampler", "status", "started", "config", r.sampler.conf, "shape", fmt.Sprint(r.state.shape))
}

func (r *Run) finish() {
	r.status = Completed
	r.closeExport()
	r.logger.Log("level", "notice", "subsys", "sampler", "status", "finished", "steps", r.step, "nfe", r.nfe, "duration", time.Since(r.started).String())
}

func (r *Run) fail(err error) error {
	r.status = Failed
	r.err = err
	r.closeExport()
	r.logger.Log("level", "error", "subsys", "sampler", "status", "failed", "step", r.step, "err", err)
	return err
}

// closeExport flushes the step stream. Don't return until the file is written.
func (r *Run) closeExport() {
	if r.histChan == nil {
		return
	}
	close(r.histChan)
	r.histChan = nil
	<-r.written
}
