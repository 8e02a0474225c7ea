package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/application/service"
	"go.uber.org/zap"
)

// OverdueWorker periodically scans for orders that have not been
// delivered within the threshold of business days and warns their
// creators. The scan is read-only with respect to orders and claims,
// so it may run concurrently with any workflow transition.
type OverdueWorker struct {
	orderRepo     port.OrderRepository
	notifier      service.NotificationService
	interval      time.Duration
	thresholdDays int
	logger        *zap.Logger
	now           func() time.Time

	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewOverdueWorker creates a new overdue-order scanner
func NewOverdueWorker(
	orderRepo port.OrderRepository,
	notifier service.NotificationService,
	interval time.Duration,
	thresholdDays int,
	logger *zap.Logger,
) *OverdueWorker {
	return &OverdueWorker{
		orderRepo:     orderRepo,
		notifier:      notifier,
		interval:      interval,
		thresholdDays: thresholdDays,
		logger:        logger,
		now:           time.Now,
		stopped:       make(chan struct{}),
	}
}

// Name returns the worker name
func (w *OverdueWorker) Name() string {
	return "overdue-order-scanner"
}

// Start launches the periodic scan loop
func (w *OverdueWorker) Start(ctx context.Context) error {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.scan(ctx)
			case <-ctx.Done():
				return
			case <-w.stopped:
				return
			}
		}
	}()
	return nil
}

// Stop signals the scan loop to exit and waits for it
func (w *OverdueWorker) Stop() error {
	close(w.stopped)
	w.wg.Wait()
	return nil
}

func (w *OverdueWorker) scan(ctx context.Context) {
	cutoff := w.now().AddDate(0, 0, -w.thresholdDays)

	orders, err := w.orderRepo.ListNotDeliveredBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("Overdue scan failed", zap.Error(err))
		return
	}

	overdue := 0
	for _, order := range orders {
		days := businessDaysSince(order.CreatedAt, w.now())
		if days >= w.thresholdDays {
			w.notifier.NotifyOrderOverdue(ctx, order, days)
			overdue++
		}
	}

	if overdue > 0 {
		w.logger.Info("Overdue orders flagged", zap.Int("count", overdue))
	}
}

// businessDaysSince counts business days between from and now. Only
// Sunday is excluded; Saturdays and holidays count as business days.
func businessDaysSince(from, now time.Time) int {
	elapsed := int(now.Sub(from).Hours() / 24)

	days := 0
	check := from
	for i := 0; i < elapsed; i++ {
		if check.Weekday() != time.Sunday {
			days++
		}
		check = check.AddDate(0, 0, 1)
	}
	return days
}
