package experiment

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/collector"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/collector/yahoo"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/config"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/logger"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/metrics"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier/email"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier/telegram"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier/webhook"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/report"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/rundir"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/storage"
)

// Files written next to the report artifacts
const (
	LogFile     = "run.log"
	MetricsFile = "metrics.prom"
)

// Outcome describes a finished experiment
type Outcome struct {
	Run       *rundir.Run
	Source    string
	Columns   []string
	Result    *backtest.Result
	Stats     backtest.Stats
	Artifacts []string
}

// Runner wires price loading, the momentum engine and artifact output
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *collector.Registry
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	allocator *rundir.Allocator
}

// New creates a runner for a validated configuration. The synthetic and
// yahoo providers are registered up front.
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := metrics.NewRegistry()
	providers := collector.NewRegistry()
	providers.Register(collector.NewSynthetic(cfg.SimConfig()))
	providers.Register(yahoo.New(yahoo.Config{
		BaseURL:           cfg.Data.Yahoo.BaseURL,
		Timeout:           cfg.Data.Yahoo.Timeout,
		RequestsPerSecond: cfg.Data.Yahoo.RequestsPerSecond,
		MaxFill:           cfg.Data.MaxFill,
		Transport:         metrics.InstrumentTransport(reg, logger, nil),
	}, logger))

	notifiers, err := buildNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		metrics:   reg,
		notifiers: notifiers,
		allocator: rundir.New(cfg.OutputsRoot),
	}, nil
}

func buildNotifiers(cfgs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, c := range cfgs {
		var n notifier.Notifier
		switch c.Type {
		case config.NotifierWebhook:
			n = webhook.New("", nil)
		case config.NotifierTelegram:
			n = telegram.New("", "")
		case config.NotifierEmail:
			n = email.New("", 0, "", "", "", nil)
		default:
			return nil, fmt.Errorf("unknown notifier type %q", c.Type)
		}
		if err := n.Init(c); err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// RegisterNotifier adds a notifier told about every finished run
func (r *Runner) RegisterNotifier(n notifier.Notifier) error {
	return r.notifiers.Register(n)
}

// RegisterProvider adds or replaces a price provider
func (r *Runner) RegisterProvider(p collector.PriceProvider) {
	r.providers.Register(p)
}

// SetAllocator replaces the run directory allocator
func (r *Runner) SetAllocator(a *rundir.Allocator) {
	r.allocator = a
}

// Metrics returns the runner's metrics registry
func (r *Runner) Metrics() *metrics.Registry {
	return r.metrics
}

// Provider returns the configured price provider. Every source except
// synthetic is served through the price cache.
func (r *Runner) Provider() (collector.PriceProvider, error) {
	p, ok := r.providers.Get(r.cfg.Data.Source)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("no provider for source %q, have %v", r.cfg.Data.Source, r.providers.Names()))
	}
	if r.cfg.Data.Source == config.SourceSynthetic {
		return p, nil
	}

	store, err := storage.Open(r.cfg.Data.Cache.Options())
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("opening price cache: %w", err))
	}
	return collector.NewCached(p, store, r.cfg.Data.Refresh, r.logger), nil
}

// Prices loads the configured price panel
func (r *Runner) Prices(ctx context.Context) (*panel.Panel, error) {
	return r.prices(ctx, r.logger)
}

func (r *Runner) prices(ctx context.Context, log *zap.Logger) (*panel.Panel, error) {
	source := r.cfg.Data.Source
	p, err := r.Provider()
	if err != nil {
		r.metrics.RecordPrices(source, "error")
		return nil, err
	}

	prices, err := p.FetchPrices(ctx, r.cfg.PriceRequest())
	if err != nil {
		r.metrics.RecordPrices(source, "error")
		return nil, fmt.Errorf("loading prices from %s: %w", source, err)
	}
	r.metrics.RecordPrices(source, "success")

	log.Info("prices loaded",
		zap.String("source", source),
		zap.Int("dates", prices.Rows()),
		zap.Int("assets", prices.Cols()),
	)
	return prices, nil
}

// Run executes the full experiment: allocate a run directory, load prices,
// backtest, summarize and persist every artifact. The run directory also
// receives the run's log and a metrics textfile. Registered notifiers are
// told about the outcome, successful or not.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	mc, err := r.cfg.Momentum()
	if err != nil {
		return nil, err
	}

	run, err := r.allocator.Allocate(ctx, r.cfg.Project)
	if err != nil {
		err = core.WrapError(core.ErrArtifactFailed, fmt.Errorf("allocating run directory: %w", err))
		r.notify(ctx, r.logger, r.summary(nil, nil, err))
		return nil, err
	}

	log, closeLog, err := logger.WithFile(r.logger, filepath.Join(run.Path, LogFile))
	if err != nil {
		err = core.WrapError(core.ErrArtifactFailed, fmt.Errorf("opening run log: %w", err))
		r.notify(ctx, r.logger, r.summary(run, nil, err))
		return nil, err
	}
	defer closeLog()
	log = log.With(zap.String("run_id", run.ID))

	out, err := r.execute(ctx, mc, run, log)
	r.notify(ctx, log, r.summary(run, out, err))
	return out, err
}

func (r *Runner) execute(ctx context.Context, mc backtest.MomentumConfig, run *rundir.Run, log *zap.Logger) (*Outcome, error) {
	log.Info("experiment started",
		zap.String("project", run.Project),
		zap.String("run_dir", run.Path),
		zap.String("revision", run.Revision),
		zap.String("source", r.cfg.Data.Source),
		zap.Int("lookback", mc.Lookback),
		zap.Stringer("rebalance", mc.Rebalance),
		zap.Float64("cost_bps", mc.CostBps),
	)

	prices, err := r.prices(ctx, log)
	if err != nil {
		log.Error("loading prices failed", zap.Error(err))
		return nil, err
	}
	returns := prices.Returns()

	res, err := r.backtest(mc, returns, log)
	if err != nil {
		log.Error("backtest failed", zap.Error(err))
		return nil, err
	}

	stats := backtest.Summarize(res, mc.Lookback, r.cfg.Metrics.PeriodsPerYear)
	r.metrics.ObserveStats(stats)
	log.Info("backtest summary",
		zap.Int("active_periods", stats.Periods),
		zap.Float64("total_return", stats.TotalReturn),
		zap.Float64("sharpe", stats.SharpeRatio),
		zap.Float64("max_drawdown", stats.MaxDrawdown),
		zap.Int("rebalances", stats.Rebalances),
		zap.Float64("total_cost", stats.TotalCost),
	)

	store, mirror, err := r.artifactStore(run)
	if err != nil {
		log.Error("opening artifact storage failed", zap.Error(err))
		return nil, err
	}

	written, err := report.NewWriter(store, r.cfg.Artifacts.Parquet).Write(ctx, &report.Report{
		Run:      run,
		Source:   r.cfg.Data.Source,
		Columns:  returns.Columns,
		Dates:    returns.Dates,
		Lookback: mc.Lookback,
		Result:   res,
		Stats:    stats,
		Config:   r.cfg.Redacted(),
	})
	if err != nil {
		log.Error("writing artifacts failed", zap.Error(err))
		return nil, err
	}

	if err := r.writeMetrics(ctx, run, mirror); err != nil {
		log.Error("writing metrics failed", zap.Error(err))
		return nil, err
	}
	written = append(written, MetricsFile)

	log.Info("experiment finished", zap.Strings("artifacts", written))

	return &Outcome{
		Run:       run,
		Source:    r.cfg.Data.Source,
		Columns:   returns.Columns,
		Result:    res,
		Stats:     stats,
		Artifacts: written,
	}, nil
}

func (r *Runner) summary(run *rundir.Run, out *Outcome, err error) notifier.RunSummary {
	s := notifier.RunSummary{
		Project:  r.cfg.Project,
		Source:   r.cfg.Data.Source,
		Finished: time.Now(),
	}
	if run != nil {
		s.RunID = run.ID
		s.RunDir = run.Path
		s.Revision = run.Revision
	}
	if err != nil {
		s.Err = err.Error()
		return s
	}

	s.Assets = len(out.Columns)
	s.Periods = out.Stats.Periods
	s.Rebalances = out.Stats.Rebalances
	s.Overlaps = out.Stats.Overlaps
	s.TotalReturn = out.Stats.TotalReturn
	s.Sharpe = out.Stats.SharpeRatio
	s.MaxDrawdown = out.Stats.MaxDrawdown
	s.TotalCost = out.Stats.TotalCost
	return s
}

// notify reports to every notifier; delivery failures are logged only
func (r *Runner) notify(ctx context.Context, log *zap.Logger, s notifier.RunSummary) {
	if r.notifiers.Len() == 0 {
		return
	}
	for name, err := range r.notifiers.NotifyAll(ctx, s) {
		log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

func (r *Runner) backtest(mc backtest.MomentumConfig, returns *panel.Panel, log *zap.Logger) (*backtest.Result, error) {
	engine, err := backtest.NewMomentum(mc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := engine.Run(returns.Values)
	duration := time.Since(start).Seconds()
	if err != nil {
		r.metrics.RecordBacktest("error", duration)
		return nil, err
	}
	r.metrics.RecordBacktest("success", duration)

	if returns.Rows() <= mc.Lookback {
		log.Warn("lookback covers the whole sample, no positions taken",
			zap.Int("periods", returns.Rows()),
			zap.Int("lookback", mc.Lookback),
		)
	}

	for _, e := range res.Rebalances {
		if e.Overlap == 0 {
			continue
		}
		fields := []zap.Field{
			zap.Int("period", e.Period),
			zap.Int("overlap", e.Overlap),
			zap.Int("assets", returns.Cols()),
		}
		if e.Period < len(returns.Dates) {
			fields = append(fields, zap.String("date", returns.Dates[e.Period].Format(core.DateLayout)))
		}
		log.Warn("long and short baskets overlap, weights netted", fields...)
	}

	log.Debug("backtest complete",
		zap.Int("periods", len(res.Returns)),
		zap.Int("rebalances", len(res.Rebalances)),
		zap.Float64("duration_s", duration),
	)
	return res, nil
}

// artifactStore returns the run directory store, mirrored when configured.
// The mirror receives artifacts under <project>/<run name>/.
func (r *Runner) artifactStore(run *rundir.Run) (storage.Storage, storage.Storage, error) {
	local, err := storage.NewLocalFS(run.Path)
	if err != nil {
		return nil, nil, core.WrapError(core.ErrArtifactFailed, err)
	}
	if r.cfg.Artifacts.Mirror.Type == "" {
		return local, nil, nil
	}

	opts := r.cfg.Artifacts.Mirror.Options()
	sub := path.Join(run.Project, filepath.Base(run.Path))
	switch opts.Type {
	case config.StorageS3:
		opts.S3.Prefix = path.Join(opts.S3.Prefix, sub)
	default:
		opts.Path = filepath.Join(opts.Path, filepath.FromSlash(sub))
	}

	mirror, err := storage.Open(opts)
	if err != nil {
		return nil, nil, core.WrapError(core.ErrArtifactFailed, fmt.Errorf("opening artifact mirror: %w", err))
	}
	return storage.Mirror(local, mirror), mirror, nil
}

func (r *Runner) writeMetrics(ctx context.Context, run *rundir.Run, mirror storage.Storage) error {
	p := filepath.Join(run.Path, MetricsFile)
	if err := r.metrics.WriteTextfile(p); err != nil {
		return core.WrapError(core.ErrArtifactFailed, fmt.Errorf("writing %s: %w", MetricsFile, err))
	}
	if mirror == nil {
		return nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return core.WrapError(core.ErrArtifactFailed, err)
	}
	if err := mirror.Write(ctx, MetricsFile, data); err != nil {
		return core.WrapError(core.ErrArtifactFailed, fmt.Errorf("mirroring %s: %w", MetricsFile, err))
	}
	return nil
}
