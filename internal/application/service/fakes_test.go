package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
)

// nopTxManager runs the unit of work directly. The services under test
// only require that everything inside fn observes the same store.
type nopTxManager struct{}

func (nopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memOrderRepo struct {
	orders   map[string]*entity.Order
	branches []*entity.Branch
	claims   *memClaimRepo
}

func newMemOrderRepo(claims *memClaimRepo) *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*entity.Order), claims: claims}
}

func (r *memOrderRepo) Create(_ context.Context, order *entity.Order) error {
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("duplicate order %s", order.ID)
	}
	r.orders[order.ID] = order
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	return r.orders[id], nil
}

func (r *memOrderRepo) ListAvailableForStages(_ context.Context, stages []stage.Stage) ([]*entity.Order, error) {
	inSet := make(map[stage.Stage]bool, len(stages))
	for _, s := range stages {
		inSet[s] = true
	}
	var out []*entity.Order
	for _, o := range r.orders {
		if !inSet[o.CurrentStage] {
			continue
		}
		if r.claims != nil && r.claims.activeFor(o.ID) != nil {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) ListNotDeliveredBefore(_ context.Context, cutoff time.Time) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, o := range r.orders {
		if o.CurrentStage != stage.StageDelivered && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStage(_ context.Context, orderID string, s stage.Stage) error {
	o, ok := r.orders[orderID]
	if !ok {
		return entity.ErrNotFound
	}
	o.CurrentStage = s
	return nil
}

func (r *memOrderRepo) UpdateNotes(_ context.Context, orderID, notes string) error {
	o, ok := r.orders[orderID]
	if !ok {
		return entity.ErrNotFound
	}
	o.Notes = notes
	return nil
}

func (r *memOrderRepo) UpdateShippingPrice(_ context.Context, orderID string, price float64) error {
	o, ok := r.orders[orderID]
	if !ok {
		return entity.ErrNotFound
	}
	o.ShippingPrice = &price
	return nil
}

func (r *memOrderRepo) CreateBranch(_ context.Context, branch *entity.Branch) error {
	r.branches = append(r.branches, branch)
	return nil
}

func (r *memOrderRepo) ListBranches(_ context.Context) ([]*entity.Branch, error) {
	return r.branches, nil
}

type memUserRepo struct {
	users map[string]*entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*entity.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) List(_ context.Context) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) UpdateRole(_ context.Context, id, role string) error {
	u, ok := r.users[id]
	if !ok {
		return entity.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) ListByStage(_ context.Context, s stage.Stage) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.users {
		if u.AssignedTo(s) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) SetStageUsers(_ context.Context, s stage.Stage, userIDs []string) error {
	assigned := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		assigned[id] = true
	}
	for _, u := range r.users {
		kept := u.Stages[:0]
		for _, st := range u.Stages {
			if st != s {
				kept = append(kept, st)
			}
		}
		u.Stages = kept
		if assigned[u.ID] {
			u.Stages = append(u.Stages, s)
		}
	}
	return nil
}

type memClaimRepo struct {
	claims map[string]*entity.StageClaim
	seq    int
}

func newMemClaimRepo() *memClaimRepo {
	return &memClaimRepo{claims: make(map[string]*entity.StageClaim)}
}

func (r *memClaimRepo) activeFor(orderID string) *entity.StageClaim {
	for _, c := range r.claims {
		if c.OrderID == orderID && c.IsActive() {
			return c
		}
	}
	return nil
}

func (r *memClaimRepo) Create(_ context.Context, claim *entity.StageClaim) error {
	if r.activeFor(claim.OrderID) != nil {
		return fmt.Errorf("order %s already has an active claim: %w", claim.OrderID, entity.ErrConflict)
	}
	cp := *claim
	r.seq++
	r.claims[claim.ID] = &cp
	return nil
}

func (r *memClaimRepo) GetByID(_ context.Context, id string) (*entity.StageClaim, error) {
	c, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memClaimRepo) FindActiveByOrder(_ context.Context, orderID string) (*entity.StageClaim, error) {
	c := r.activeFor(orderID)
	if c == nil {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memClaimRepo) Complete(_ context.Context, claimID string, at time.Time) error {
	c, ok := r.claims[claimID]
	if !ok {
		return entity.ErrNotFound
	}
	if !c.IsActive() {
		return entity.ErrAlreadyCompleted
	}
	c.CompletedAt = &at
	return nil
}

func (r *memClaimRepo) UpdateClaimant(_ context.Context, claimID, newUserID string) error {
	c, ok := r.claims[claimID]
	if !ok {
		return entity.ErrNotFound
	}
	if !c.IsActive() {
		return entity.ErrAlreadyCompleted
	}
	c.UserID = newUserID
	return nil
}

func (r *memClaimRepo) ListByUser(_ context.Context, userID string, filter port.ClaimFilter) ([]*entity.StageClaim, error) {
	var out []*entity.StageClaim
	for _, c := range r.claims {
		if c.UserID != userID {
			continue
		}
		switch filter {
		case port.ClaimFilterActive:
			if !c.IsActive() {
				continue
			}
		case port.ClaimFilterCompleted:
			if c.IsActive() {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.Before(out[j].ClaimedAt) })
	return out, nil
}

func (r *memClaimRepo) ListAll(_ context.Context) ([]*entity.StageClaim, error) {
	var out []*entity.StageClaim
	for _, c := range r.claims {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.After(out[j].ClaimedAt) })
	return out, nil
}

// recordingNotifier captures notification calls in order
type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, orderID, creatorID string) {
	n.events = append(n.events, fmt.Sprintf("created:%s:%s", orderID, creatorID))
}

func (n *recordingNotifier) NotifyOrderClaimed(_ context.Context, orderID, userID string, s stage.Stage) {
	n.events = append(n.events, fmt.Sprintf("claimed:%s:%s:%s", orderID, userID, s))
}

func (n *recordingNotifier) NotifyOrderAdvanced(_ context.Context, orderID, userID string, from, to stage.Stage) {
	n.events = append(n.events, fmt.Sprintf("advanced:%s:%s:%s->%s", orderID, userID, from, to))
}

func (n *recordingNotifier) NotifyOrderAvailableForStage(_ context.Context, orderID string, s stage.Stage) {
	n.events = append(n.events, fmt.Sprintf("available:%s:%s", orderID, s))
}

func (n *recordingNotifier) NotifyOrderOverdue(_ context.Context, order *entity.Order, businessDays int) {
	n.events = append(n.events, fmt.Sprintf("overdue:%s:%d", order.ID, businessDays))
}

func (n *recordingNotifier) History(context.Context, string, int) ([]*entity.Notification, error) {
	return nil, nil
}
