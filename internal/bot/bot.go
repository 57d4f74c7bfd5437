// Package bot runs one cycle of the canvas bot over every configured
// account: log in, collect rewards and tasks, then repaint the
// account's template.
package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wbrown/pixelbot"
	"github.com/wbrown/pixelbot/internal/account"
	"github.com/wbrown/pixelbot/internal/auth"
	"github.com/wbrown/pixelbot/internal/config"
	"github.com/wbrown/pixelbot/internal/notpx"
)

// API is the part of the canvas API a cycle uses.
type API interface {
	pixelbot.PaintClient
	Me(ctx context.Context, credential string) (*notpx.User, error)
	MiningStatus(ctx context.Context, credential string) (*notpx.MiningStatus, error)
	Claim(ctx context.Context, credential string) (float64, error)
	CheckTask(ctx context.Context, credential, task string) error
	Template(ctx context.Context, credential string) (pixelbot.Template, error)
	DownloadTemplate(ctx context.Context, imageURL, path string) ([]byte, error)
}

// ClientFactory builds the API client for one account.
type ClientFactory func(p account.Profile) (API, error)

// AccountResult is the outcome of one account's cycle.
type AccountResult struct {
	Account string
	Repaint pixelbot.Result
	// Stage is where the cycle stopped when Err is set.
	Stage string
	Err   error
}

// Runner holds everything shared between accounts.
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	creds      *auth.Store
	analyzer   *pixelbot.Analyzer
	palette    pixelbot.Palette
	newClient  ClientFactory
	engineOpts []pixelbot.EngineOption
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClientFactory replaces the notpx client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(r *Runner) {
		r.newClient = f
	}
}

// WithEngineOptions appends options to every repaint engine.
func WithEngineOptions(opts ...pixelbot.EngineOption) Option {
	return func(r *Runner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// New creates a runner. It fails when the palette is empty or the color
// distance method is unknown.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	palette := pixelbot.LoadPalette(cfg.Repaint.Palette)
	if len(palette) == 0 {
		return nil, fmt.Errorf("%w: %q", pixelbot.ErrEmptyPalette, cfg.Repaint.Palette)
	}
	method, err := pixelbot.DistanceMethodByName(cfg.Repaint.Distance)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		logger:   zap.NewNop(),
		analyzer: pixelbot.NewAnalyzer(pixelbot.NewQuantizer(palette, method)),
		palette:  palette,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.creds = auth.NewStore(cfg.Files.UserData, r.logger)
	if r.newClient == nil {
		r.newClient = notpxFactory(cfg, r.logger)
	}
	return r, nil
}

func notpxFactory(cfg *config.Config, logger *zap.Logger) ClientFactory {
	limit := rate.Inf
	if cfg.API.RateLimit > 0 {
		limit = rate.Limit(cfg.API.RateLimit)
	}
	limiter := rate.NewLimiter(limit, max(cfg.API.Burst, 1))
	return func(p account.Profile) (API, error) {
		proxy, err := p.ProxyURL()
		if err != nil {
			return nil, err
		}
		return notpx.NewClient(cfg.API.BaseURL,
			notpx.WithLimiter(limiter),
			notpx.WithProxy(proxy),
			notpx.WithTimeout(cfg.API.Timeout),
			notpx.WithUserAgent(cfg.API.UserAgent),
			notpx.WithLogger(logger.With(zap.String("account", p.Name))),
		), nil
	}
}

// RunCycle processes every profile once, at most run.concurrency at a
// time. Account failures are logged and reported in the results; only a
// missing profile list or cancellation fails the cycle.
func (r *Runner) RunCycle(ctx context.Context) ([]AccountResult, error) {
	profiles, err := account.Load(r.cfg.Files.Profiles, func(p account.Profile, err error) {
		r.logger.Warn("Skipping profile", zap.String("account", p.Name), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}

	tasks, err := LoadTasks(r.cfg.Files.Tasks, r.cfg.Files.CheckTasks)
	if err != nil {
		r.logger.Warn("Task lists unavailable, skipping task claims", zap.Error(err))
		tasks = nil
	}

	r.logger.Info("Starting cycle", zap.Int("accounts", len(profiles)), zap.Int("concurrency", r.cfg.Run.Concurrency))

	results := make([]AccountResult, len(profiles))
	var g errgroup.Group
	g.SetLimit(max(r.cfg.Run.Concurrency, 1))
	for i, p := range profiles {
		progress := pixelbot.NewProgressStore(r.cfg.Repaint.ProgressDir, p.Name, r.logger)
		if err := progress.Reset(); err != nil {
			r.logger.Error("Error resetting repaint progress", zap.String("account", p.Name), zap.Error(err))
		}
		g.Go(func() error {
			results[i] = r.runAccount(ctx, p, tasks, progress)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("Cycle finished", zap.Int("accounts", len(profiles)), zap.Int("failed", failed))
	return results, ctx.Err()
}

func (r *Runner) runAccount(ctx context.Context, p account.Profile, tasks *Tasks, progress *pixelbot.ProgressStore) AccountResult {
	res := AccountResult{Account: p.Name}
	log := r.logger.With(zap.String("account", p.Name))
	fail := func(stage string, err error) AccountResult {
		res.Stage, res.Err = stage, err
		if !errors.Is(err, context.Canceled) {
			log.Error("Account cycle failed", zap.String("stage", stage), zap.Error(err))
		}
		return res
	}

	cred, err := r.creds.Get(p.Name)
	if err != nil {
		return fail("auth", err)
	}
	if data, err := auth.ParseInitData(cred); err == nil {
		log.Debug("Loaded credential",
			zap.Int64("user_id", data.User.ID),
			zap.String("username", data.User.Username),
			zap.Time("auth_date", data.AuthDate),
			zap.Duration("age", data.Age(time.Now())))
	} else {
		log.Warn("Credential is not valid init data", zap.String("stage", "auth"), zap.Error(err))
	}

	client, err := r.newClient(p)
	if err != nil {
		return fail("client", err)
	}
	call := func(fn func(c string) error) error {
		return pixelbot.WithReauth(ctx, r.creds, p.Name, &cred, fn)
	}

	var user *notpx.User
	if err := call(func(c string) (err error) {
		user, err = client.Me(ctx, c)
		return err
	}); err != nil {
		return fail("login", err)
	}
	log.Info("Logged in", zap.String("stage", "login"), zap.Float64("balance", user.Balance), zap.Int("repaints", user.Repaints))

	var claimed float64
	if err := call(func(c string) (err error) {
		claimed, err = client.Claim(ctx, c)
		return err
	}); err != nil {
		if fatal(err) {
			return fail("claim", err)
		}
		log.Warn("Error claiming rewards", zap.String("stage", "claim"), zap.Error(err))
	} else {
		log.Info("Claimed rewards", zap.String("stage", "claim"), zap.Float64("claimed", claimed))
	}

	var status *notpx.MiningStatus
	if err := call(func(c string) (err error) {
		status, err = client.MiningStatus(ctx, c)
		return err
	}); err != nil {
		return fail("status", err)
	}

	if err := r.claimTasks(ctx, log, client, call, tasks, status.Tasks); err != nil {
		return fail("tasks", err)
	}

	if err := call(func(c string) (err error) {
		status, err = client.MiningStatus(ctx, c)
		return err
	}); err != nil {
		return fail("status", err)
	}
	log.Info("Mining status",
		zap.String("stage", "status"),
		zap.Float64("balance", status.UserBalance),
		zap.Int("charges", status.Charges))

	if !r.cfg.Repaint.Enabled {
		log.Info("Repaint disabled, skipping template")
		return res
	}

	var tmpl pixelbot.Template
	if err := call(func(c string) (err error) {
		tmpl, err = client.Template(ctx, c)
		return err
	}); err != nil {
		return fail("template", err)
	}
	log.Info("Template info",
		zap.String("stage", "template"),
		zap.String("template", tmpl.ID),
		zap.Int("x", tmpl.X),
		zap.Int("y", tmpl.Y),
		zap.Int("size", tmpl.Size))

	imagePath := filepath.Join(r.cfg.Repaint.ImageDir, "image_"+p.Name+".png")
	data, err := client.DownloadTemplate(ctx, tmpl.URL, imagePath)
	if err != nil {
		return fail("template", err)
	}

	colors, err := r.analyzer.Analyze(data)
	if err != nil {
		return fail("analyze", err)
	}
	for _, cc := range pixelbot.Histogram(colors) {
		log.Info("Template color",
			zap.String("stage", "analyze"),
			zap.String("color", cc.Color.Hex()),
			zap.Int("count", cc.Count),
			zap.Float64("percent", cc.Percent))
	}
	if r.cfg.Repaint.Preview && len(colors) == tmpl.Cells() {
		previewPath := filepath.Join(r.cfg.Repaint.ImageDir, "preview_"+p.Name+".png")
		if err := pixelbot.SavePreview(previewPath, colors, tmpl.Size, 4); err != nil {
			log.Warn("Error saving preview", zap.String("stage", "analyze"), zap.Error(err))
		}
	}

	opts := append([]pixelbot.EngineOption{
		pixelbot.WithLogger(r.logger),
		pixelbot.WithDelay(r.cfg.Repaint.Delay),
	}, r.engineOpts...)
	engine := pixelbot.NewEngine(client, r.creds, opts...)
	res.Repaint, err = engine.Run(ctx, pixelbot.Job{
		Account:    p.Name,
		Credential: cred,
		Template:   tmpl,
		Colors:     colors,
		Palette:    r.palette,
		Charges:    status.Charges,
		Progress:   progress,
	})
	if err != nil {
		return fail("repaint", err)
	}
	log.Info("Repaint finished",
		zap.String("stage", "repaint"),
		zap.Int("painted", res.Repaint.Painted),
		zap.Int("failed", res.Repaint.Failed),
		zap.Int("remaining", res.Repaint.Remaining),
		zap.Bool("stalled", res.Repaint.Stalled))
	return res
}

func (r *Runner) claimTasks(
	ctx context.Context,
	log *zap.Logger,
	client API,
	call func(fn func(c string) error) error,
	tasks *Tasks,
	done map[string]bool,
) error {
	missing := tasks.Missing(done)
	if tasks != nil && len(missing) == 0 {
		log.Info("All tasks completed", zap.String("stage", "tasks"))
		return nil
	}
	for _, key := range missing {
		check := tasks.Checks[key]
		if check == "" {
			log.Error("No check id for task", zap.String("stage", "tasks"), zap.String("task", key))
			continue
		}
		err := call(func(c string) error {
			return client.CheckTask(ctx, c, check)
		})
		if err != nil {
			if fatal(err) {
				return err
			}
			log.Warn("Error claiming task", zap.String("stage", "tasks"), zap.String("task", key), zap.Error(err))
			continue
		}
		log.Info("Claimed task", zap.String("stage", "tasks"), zap.String("task", key))
	}
	return nil
}

// fatal reports errors that end an account's cycle.
func fatal(err error) bool {
	return errors.Is(err, pixelbot.ErrAuthFailed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
