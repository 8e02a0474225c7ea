package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"go.uber.org/zap"
)

// CreateProductInput describes one product of a new order
type CreateProductInput struct {
	Name            string   `json:"name"`
	Width           float64  `json:"width" binding:"required"`
	Height          float64  `json:"height" binding:"required"`
	Quantity        int      `json:"quantity" binding:"required"`
	Price           float64  `json:"price"`
	PaperType       string   `json:"paper_type"`
	NeedsDesign     bool     `json:"needs_design"`
	DesignAmount    *float64 `json:"design_amount"`
	NeedsCut        bool     `json:"needs_cut"`
	NeedsLamination bool     `json:"needs_lamination"`
}

// CreateOrderInput describes a new order with its products
type CreateOrderInput struct {
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone" binding:"required"`
	BranchID      string               `json:"branch_id" binding:"required"`
	IsUrgent      bool                 `json:"is_urgent"`
	ShippingPrice *float64             `json:"shipping_price"`
	Notes         string               `json:"notes"`
	Products      []CreateProductInput `json:"products" binding:"required,min=1"`
}

// OrderService manages order creation and queries
type OrderService interface {
	Create(ctx context.Context, input CreateOrderInput, creatorID string) (*entity.Order, error)
	Get(ctx context.Context, id string) (*entity.Order, error)
	ListAvailable(ctx context.Context, userID string) ([]*entity.Order, error)
	UpdateNotes(ctx context.Context, orderID, notes string) error
	UpdateShippingPrice(ctx context.Context, orderID string, price float64) error
	ConfirmationMessage(ctx context.Context, orderID string) (string, error)
	CreateBranch(ctx context.Context, name, address string) (*entity.Branch, error)
	ListBranches(ctx context.Context) ([]*entity.Branch, error)
}

type orderServiceImpl struct {
	sequence  *stage.Sequence
	orderRepo port.OrderRepository
	userRepo  port.UserRepository
	txManager port.TransactionManager
	notifier  NotificationService
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	sequence *stage.Sequence,
	orderRepo port.OrderRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	notifier NotificationService,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		sequence:  sequence,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Create inserts the order and its products atomically at the first
// pipeline stage
func (s *orderServiceImpl) Create(ctx context.Context, input CreateOrderInput, creatorID string) (*entity.Order, error) {
	if len(input.Products) == 0 {
		return nil, fmt.Errorf("order must contain at least one product: %w", entity.ErrValidation)
	}

	order := &entity.Order{
		ID:            uuid.NewString(),
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		BranchID:      input.BranchID,
		CreatorID:     creatorID,
		IsUrgent:      input.IsUrgent,
		ShippingPrice: input.ShippingPrice,
		Notes:         input.Notes,
		CurrentStage:  s.sequence.First(),
		CreatedAt:     s.now(),
	}

	for _, p := range input.Products {
		order.Products = append(order.Products, &entity.Product{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			Name:            p.Name,
			Width:           p.Width,
			Height:          p.Height,
			Quantity:        p.Quantity,
			Price:           p.Price,
			PaperType:       p.PaperType,
			NeedsDesign:     p.NeedsDesign,
			DesignAmount:    p.DesignAmount,
			NeedsCut:        p.NeedsCut,
			NeedsLamination: p.NeedsLamination,
		})
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.orderRepo.Create(txCtx, order)
	})
	if err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int("products", len(order.Products)),
		zap.Bool("urgent", order.IsUrgent))

	s.notifier.NotifyOrderCreated(ctx, order.ID, creatorID)
	s.notifier.NotifyOrderAvailableForStage(ctx, order.ID, order.CurrentStage)
	return order, nil
}

// Get retrieves an order by ID
func (s *orderServiceImpl) Get(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", id, entity.ErrNotFound)
	}
	return order, nil
}

// ListAvailable returns unclaimed orders at a stage the user is assigned to
func (s *orderServiceImpl) ListAvailable(ctx context.Context, userID string) ([]*entity.Order, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, entity.ErrNotFound)
	}
	return s.orderRepo.ListAvailableForStages(ctx, user.Stages)
}

// UpdateNotes sets the order's notes
func (s *orderServiceImpl) UpdateNotes(ctx context.Context, orderID, notes string) error {
	return s.orderRepo.UpdateNotes(ctx, orderID, notes)
}

// UpdateShippingPrice sets the order's shipping price
func (s *orderServiceImpl) UpdateShippingPrice(ctx context.Context, orderID string, price float64) error {
	if price < 0 {
		return fmt.Errorf("shipping price must not be negative: %w", entity.ErrValidation)
	}
	return s.orderRepo.UpdateShippingPrice(ctx, orderID, price)
}

// ConfirmationMessage builds the plain-text order confirmation sent to
// the customer
func (s *orderServiceImpl) ConfirmationMessage(ctx context.Context, orderID string) (string, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "JetPrint Order Confirmation\n\n")
	fmt.Fprintf(&b, "Order ID: #%s\n", strings.ToUpper(shortID(order.ID)))
	if order.BranchName != "" {
		fmt.Fprintf(&b, "Branch: %s\n", order.BranchName)
	}
	if order.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	}
	fmt.Fprintf(&b, "Phone: %s\n", order.CustomerPhone)
	fmt.Fprintf(&b, "Date: %s\n\n", order.CreatedAt.Format("2006-01-02"))

	fmt.Fprintf(&b, "Products:\n")
	var total, designTotal float64
	for i, p := range order.Products {
		name := p.Name
		if name == "" {
			name = "Product"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		fmt.Fprintf(&b, "   Size: %g x %g cm\n", p.Width, p.Height)
		fmt.Fprintf(&b, "   Quantity: %d\n", p.Quantity)
		if p.PaperType != "" {
			fmt.Fprintf(&b, "   Paper: %s\n", p.PaperType)
		}
		fmt.Fprintf(&b, "   Price: %.2f\n", p.Price)
		total += p.Price
		if fee := p.DesignFee(); fee > 0 {
			fmt.Fprintf(&b, "   Design fee: %.2f\n", fee)
			designTotal += fee
		}
	}

	fmt.Fprintf(&b, "\nSubtotal: %.2f\n", total)
	if designTotal > 0 {
		fmt.Fprintf(&b, "Design total: %.2f\n", designTotal)
	}
	if order.ShippingPrice != nil {
		fmt.Fprintf(&b, "Shipping: %.2f\n", *order.ShippingPrice)
		total += *order.ShippingPrice
	}
	fmt.Fprintf(&b, "Grand total: %.2f\n", total+designTotal)

	return b.String(), nil
}

// CreateBranch registers a new shop location
func (s *orderServiceImpl) CreateBranch(ctx context.Context, name, address string) (*entity.Branch, error) {
	branch := &entity.Branch{
		ID:      uuid.NewString(),
		Name:    name,
		Address: address,
	}
	if err := s.orderRepo.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// ListBranches returns all branches
func (s *orderServiceImpl) ListBranches(ctx context.Context) ([]*entity.Branch, error) {
	return s.orderRepo.ListBranches(ctx)
}
