// Package scheduler runs periodic maintenance jobs on a cron schedule
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultOverdueCron sweeps invoices at the top of every hour
const DefaultOverdueCron = "0 * * * *"

// OverdueMarker flags invoices past their due date and reports how many
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// OverdueSweeper periodically marks overdue invoices
type OverdueSweeper struct {
	expr    string
	marker  OverdueMarker
	timeout time.Duration
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewOverdueSweeper validates expr and creates the sweeper. An empty expr
// selects DefaultOverdueCron.
func NewOverdueSweeper(expr string, marker OverdueMarker, logger *zap.Logger) (*OverdueSweeper, error) {
	if expr == "" {
		expr = DefaultOverdueCron
	}
	if marker == nil {
		return nil, errors.New("overdue marker is required")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OverdueSweeper{
		expr:    expr,
		marker:  marker,
		timeout: time.Minute,
		logger:  logger.With(zap.String("job", "overdue_sweep"), zap.String("cron", expr)),
	}, nil
}

// Start schedules the sweep. Runs never overlap; a panic in one run is
// recovered and logged.
func (s *OverdueSweeper) Start() error {
	if s.cron != nil {
		return errors.New("overdue sweeper already started")
	}

	logger := cronLogger{s.logger.Sugar()}
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	id, err := s.cron.AddFunc(s.expr, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("Overdue sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add overdue sweep job: %w", err)
	}

	s.logger.Info("Starting overdue sweeper", zap.Int("entry_id", int(id)))
	s.cron.Start()
	return nil
}

// RunOnce performs one sweep
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	marked, err := s.marker.MarkOverdue(ctx)
	if err != nil {
		return marked, err
	}
	if marked > 0 {
		s.logger.Info("Overdue sweep completed", zap.Int("marked", marked))
	}
	return marked, nil
}

// Stop stops scheduling and waits for a running sweep until ctx is done
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.logger.Info("Stopping overdue sweeper")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger implements cron.Logger on top of zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
