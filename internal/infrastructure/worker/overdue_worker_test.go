package worker

import (
	"context"
	"testing"
	"time"

	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBusinessDaysSince(t *testing.T) {
	// 2026-08-24 is a Monday
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		now  time.Time
		want int
	}{
		{
			name: "same day",
			from: monday,
			now:  monday,
			want: 0,
		},
		{
			name: "two weekdays",
			from: monday,
			now:  monday.AddDate(0, 0, 2),
			want: 2,
		},
		{
			name: "full week excludes one sunday",
			from: monday,
			now:  monday.AddDate(0, 0, 7),
			want: 6,
		},
		{
			name: "saturday counts as a business day",
			from: monday.AddDate(0, 0, 5), // Saturday
			now:  monday.AddDate(0, 0, 7),
			want: 1,
		},
		{
			name: "starting sunday contributes nothing",
			from: monday.AddDate(0, 0, 6), // Sunday
			now:  monday.AddDate(0, 0, 7),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := businessDaysSince(tt.from, tt.now)
			if got != tt.want {
				t.Errorf("businessDaysSince() = %d, want %d", got, tt.want)
			}
		})
	}
}

type stubOrderRepo struct {
	orders []*entity.Order
}

func (s *stubOrderRepo) Create(ctx context.Context, order *entity.Order) error { return nil }
func (s *stubOrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListAvailableForStages(ctx context.Context, stages []stage.Stage) ([]*entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListNotDeliveredBefore(ctx context.Context, cutoff time.Time) ([]*entity.Order, error) {
	return s.orders, nil
}
func (s *stubOrderRepo) UpdateStage(ctx context.Context, orderID string, st stage.Stage) error {
	return nil
}
func (s *stubOrderRepo) UpdateNotes(ctx context.Context, orderID, notes string) error { return nil }
func (s *stubOrderRepo) UpdateShippingPrice(ctx context.Context, orderID string, price float64) error {
	return nil
}
func (s *stubOrderRepo) CreateBranch(ctx context.Context, branch *entity.Branch) error {
	return nil
}
func (s *stubOrderRepo) ListBranches(ctx context.Context) ([]*entity.Branch, error) {
	return nil, nil
}

type recordingNotifier struct {
	overdue []string
}

func (n *recordingNotifier) NotifyOrderCreated(ctx context.Context, orderID, creatorID string) {}
func (n *recordingNotifier) NotifyOrderClaimed(ctx context.Context, orderID, userID string, s stage.Stage) {
}
func (n *recordingNotifier) NotifyOrderAdvanced(ctx context.Context, orderID, userID string, from, to stage.Stage) {
}
func (n *recordingNotifier) NotifyOrderAvailableForStage(ctx context.Context, orderID string, s stage.Stage) {
}
func (n *recordingNotifier) NotifyOrderOverdue(ctx context.Context, order *entity.Order, businessDays int) {
	n.overdue = append(n.overdue, order.ID)
}

func (n *recordingNotifier) History(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	return nil, nil
}

func TestOverdueWorker_Scan(t *testing.T) {
	// 2026-08-28 is a Friday
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	repo := &stubOrderRepo{orders: []*entity.Order{
		{ID: "old", CreatorID: "u1", CurrentStage: stage.StagePrinting, CreatedAt: now.AddDate(0, 0, -4)},
		{ID: "fresh", CreatorID: "u1", CurrentStage: stage.StageWaiting, CreatedAt: now.AddDate(0, 0, -1)},
	}}
	notifier := &recordingNotifier{}

	w := NewOverdueWorker(repo, notifier, time.Hour, 2, zap.NewNop())
	w.now = func() time.Time { return now }

	w.scan(context.Background())

	assert.Equal(t, []string{"old"}, notifier.overdue)
}
