package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/anchor/internal/config"
	"github.com/five82/anchor/internal/deliver"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/savior"
	"github.com/five82/anchor/internal/statestore"
	"github.com/five82/anchor/internal/ui"
)

const eventHistory = 200

// Options configure the demo application. Zero values fall back to the
// config file.
type Options struct {
	ConfigPath string // empty uses ~/.config/anchor/config.toml
	StatePath  string
	Delivery   string
	TickEvery  time.Duration
}

// Run boots the demo until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	policy, err := deliver.ParsePolicy(cfg.Delivery)
	if err != nil {
		return fmt.Errorf("delivery policy: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	events := &logging.Recorder{Max: eventHistory}
	sink := logging.Tee(
		logging.Zap(logger),
		logging.MinLevel(logging.ParseLevel(cfg.LogLevel), events),
	)

	store, err := statestore.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	metrics, err := savior.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	sv := savior.NewScoped(savior.WithLogger(sink), savior.WithMetrics(metrics))

	tick := cfg.TickEvery
	uiOpts := ui.Options{
		Context:    ctx,
		Config:     &cfg,
		ConfigPath: opts.ConfigPath,
		Savior:     sv,
		Store:      store,
		Logger:     sink,
		Events:     events,
		Feed: func(ctx context.Context) <-chan int {
			return StartTicker(ctx, tick)
		},
		Policy: policy,
	}
	runErr := ui.Run(uiOpts)

	if summary, err := metricsSummary(reg); err == nil {
		logger.Info("savior metrics at exit", zap.String("metrics", summary))
	}
	return runErr
}

func applyOverrides(cfg *config.Config, opts Options) {
	if path := strings.TrimSpace(opts.StatePath); path != "" {
		cfg.StatePath = path
	}
	if delivery := strings.TrimSpace(opts.Delivery); delivery != "" {
		cfg.Delivery = strings.ToLower(delivery)
	}
	if opts.TickEvery > 0 {
		cfg.TickEvery = opts.TickEvery
	}
}

// newLogger writes JSON lines to the configured log file. Without one the
// terminal belongs to the UI and zap stays silent.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.LogPath == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel(logging.ParseLevel(cfg.LogLevel)))
	zcfg.OutputPaths = []string{cfg.LogPath}
	zcfg.ErrorOutputPaths = []string{cfg.LogPath}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

func zapLevel(level logging.Level) zapcore.Level {
	switch level {
	case logging.Verbose, logging.Debug:
		return zapcore.DebugLevel
	case logging.Info:
		return zapcore.InfoLevel
	case logging.Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// metricsSummary renders every gathered sample as name{labels}=value.
func metricsSummary(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}
	var parts []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value float64
			switch {
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			default:
				continue
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			parts = append(parts, fmt.Sprintf("%s=%g", name, value))
		}
	}
	return strings.Join(parts, " "), nil
}
