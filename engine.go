package pixelbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPaintDelay is the pause after every paint attempt.
const DefaultPaintDelay = 3 * time.Second

// State is a step of the repaint state machine.
type State int

const (
	StateBuilding State = iota
	StatePainting
	StateRefilling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StatePainting:
		return "painting"
	case StateRefilling:
		return "refilling"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PaintClient is the remote side of the repaint loop.
type PaintClient interface {
	// Repaint paints one cell and returns the account's new balance.
	Repaint(ctx context.Context, credential string, item WorkItem) (float64, error)
	// Charges returns the number of paints the account may make now.
	Charges(ctx context.Context, credential string) (int, error)
}

// CredentialRefresher produces a fresh credential for an account after
// the current one was rejected.
type CredentialRefresher interface {
	Refresh(ctx context.Context, account string) (string, error)
}

// WithReauth runs call with *credential. If it fails with
// ErrUnauthorized the credential is refreshed once, stored back into
// *credential, and call is retried once. A second rejection, or a
// failed refresh, is reported as ErrAuthFailed.
func WithReauth(
	ctx context.Context,
	refresher CredentialRefresher,
	account string,
	credential *string,
	call func(credential string) error,
) error {
	err := call(*credential)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if refresher == nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	fresh, refreshErr := refresher.Refresh(ctx, account)
	if refreshErr != nil {
		return fmt.Errorf("%w: refresh: %v", ErrAuthFailed, refreshErr)
	}
	*credential = fresh
	err = call(fresh)
	if errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return err
}

// Job is one account's repaint of one template.
type Job struct {
	Account    string
	Credential string
	Template   Template
	// Colors is the quantized template image, row-major.
	Colors   []RGB
	Palette  Palette
	Charges  int
	Progress *ProgressStore
}

// Result summarizes a finished run.
type Result struct {
	State     State
	Painted   int
	Failed    int
	Remaining int
	Charges   int
	Refills   int
	// Stalled is set when a whole batch failed and the run gave up
	// with budget left.
	Stalled bool
	// Credential is the credential in use at the end, which differs
	// from the job's after a refresh.
	Credential string
}

// Engine replays template work items against a PaintClient within the
// account's charge budget. One Engine can serve many accounts at once;
// each Run is sequential.
type Engine struct {
	client    PaintClient
	refresher CredentialRefresher
	logger    *zap.Logger
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// NewEngine creates an engine. Defaults: DefaultPaintDelay, a
// time-seeded shuffle, no logging.
func NewEngine(client PaintClient, refresher CredentialRefresher, opts ...EngineOption) *Engine {
	e := &Engine{
		client:    client,
		refresher: refresher,
		logger:    zap.NewNop(),
		delay:     DefaultPaintDelay,
		sleep:     sleepContext,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDelay sets the pause after each paint attempt.
func WithDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithRand sets the random source used to shuffle batches.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithSleep replaces the context-aware sleep between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run builds the job's work items and paints them until none remain or
// the budget runs out for good. Input errors (empty palette, bad
// template, size mismatch) are returned before anything is painted.
// ErrAuthFailed and context errors abort the run; everything else is
// logged and skipped.
func (e *Engine) Run(ctx context.Context, job Job) (Result, error) {
	res := Result{
		State:      StateBuilding,
		Charges:    max(job.Charges, 0),
		Credential: job.Credential,
	}
	log := e.logger.With(
		zap.String("account", job.Account),
		zap.String("template", job.Template.ID),
	)

	if len(job.Palette) == 0 {
		return res, ErrEmptyPalette
	}
	if err := job.Template.Validate(); err != nil {
		return res, err
	}
	if len(job.Colors) != job.Template.Cells() {
		return res, fmt.Errorf("%w: need %d pixels, image has %d",
			ErrSizeMismatch, job.Template.Cells(), len(job.Colors))
	}
	if job.Progress == nil {
		return res, errors.New("repaint job has no progress store")
	}

	items := BuildWorkItems(job.Template, job.Colors, job.Palette)
	job.Progress.Load()
	log.Info("Built repaint work items",
		zap.String("stage", StateBuilding.String()),
		zap.Int("items", len(items)),
		zap.Int("painted", job.Progress.Len()),
		zap.Int("charges", res.Charges))

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pending := e.pending(items, job.Progress)
		res.Remaining = len(pending)
		if len(pending) == 0 {
			res.State = StateDone
			log.Info("Repaint complete", zap.Int("painted", res.Painted), zap.Int("charges", res.Charges))
			return res, nil
		}

		if res.Charges == 0 {
			res.State = StateRefilling
			n, err := e.refill(ctx, job.Account, &res.Credential, log)
			res.Refills++
			if err != nil {
				return res, err
			}
			if n <= 0 {
				res.State = StateDone
				log.Info("Out of charges", zap.Int("remaining", res.Remaining))
				return res, nil
			}
			res.Charges = n
			continue
		}

		res.State = StatePainting
		batch := pending[:min(res.Charges, len(pending))]
		e.shuffle(batch)
		log.Info("Repainting batch",
			zap.String("stage", StatePainting.String()),
			zap.Int("batch", len(batch)),
			zap.Int("remaining", len(pending)),
			zap.Int("charges", res.Charges))

		successes := 0
		for _, item := range batch {
			ok, err := e.paint(ctx, job.Account, &res.Credential, item, log)
			if err != nil {
				return res, err
			}
			if ok {
				successes++
				res.Painted++
				res.Charges--
				if err := job.Progress.MarkPainted(item.CellID); err != nil {
					log.Error("Error saving repaint progress", zap.Int("cell", item.CellID), zap.Error(err))
				}
			} else {
				res.Failed++
			}
			if err := e.sleep(ctx, e.delay); err != nil {
				return res, err
			}
		}

		if successes == 0 {
			res.Stalled = true
			res.State = StateDone
			log.Warn("Every paint in the batch failed, giving up for this cycle",
				zap.Int("remaining", res.Remaining),
				zap.Int("charges", res.Charges))
			return res, nil
		}
	}
}

// pending returns the work items not yet marked painted, in build order.
func (e *Engine) pending(items []WorkItem, progress *ProgressStore) []WorkItem {
	out := make([]WorkItem, 0, len(items))
	for _, item := range items {
		if !progress.IsPainted(item.CellID) {
			out = append(out, item)
		}
	}
	return out
}

func (e *Engine) shuffle(batch []WorkItem) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})
}

// paint submits one item. It reports success, or an error only when the
// run must stop.
func (e *Engine) paint(
	ctx context.Context,
	account string,
	credential *string,
	item WorkItem,
	log *zap.Logger,
) (bool, error) {
	x, y := CellPosition(item.CellID)
	fields := []zap.Field{
		zap.Int("cell", item.CellID),
		zap.Int("x", x),
		zap.Int("y", y),
		zap.String("color", item.Color.Hex()),
	}

	var balance float64
	err := WithReauth(ctx, e.refresher, account, credential, func(c string) error {
		var err error
		balance, err = e.client.Repaint(ctx, c, item)
		return err
	})
	switch {
	case err == nil:
		log.Info("Repainted pixel", append(fields, zap.Float64("balance", balance))...)
		return true, nil
	case errors.Is(err, ErrAuthFailed):
		log.Error("Authorization rejected after refresh", append(fields, zap.Error(err))...)
		return false, err
	case ctx.Err() != nil:
		return false, ctx.Err()
	}
	log.Warn("Repaint failed", append(fields, zap.Error(err))...)
	return false, nil
}

// refill asks the server for the current charge count once. Transient
// errors count as no budget.
func (e *Engine) refill(ctx context.Context, account string, credential *string, log *zap.Logger) (int, error) {
	var charges int
	err := WithReauth(ctx, e.refresher, account, credential, func(c string) error {
		var err error
		charges, err = e.client.Charges(ctx, c)
		return err
	})
	switch {
	case err == nil:
		charges = max(charges, 0)
		log.Info("Refreshed charges", zap.String("stage", StateRefilling.String()), zap.Int("charges", charges))
		return charges, nil
	case errors.Is(err, ErrAuthFailed):
		return 0, err
	case ctx.Err() != nil:
		return 0, ctx.Err()
	}
	log.Warn("Error querying charges", zap.String("stage", StateRefilling.String()), zap.Error(err))
	return 0, nil
}
