package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"go.uber.org/zap"
)

// OrderRepository implements port.OrderRepository
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) port.OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `
	o.id, o.customer_name, o.customer_phone, o.branch_id, b.name,
	o.creator_id, o.is_urgent, o.shipping_price, o.notes,
	o.current_stage, o.created_at
`

// Create inserts the order and its product set atomically. Callers are
// expected to run this inside a transaction.
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_name, customer_phone, branch_id, creator_id,
			is_urgent, shipping_price, notes, current_stage, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var customerName, notes sql.NullString
	var shippingPrice sql.NullFloat64
	if order.CustomerName != "" {
		customerName = sql.NullString{String: order.CustomerName, Valid: true}
	}
	if order.Notes != "" {
		notes = sql.NullString{String: order.Notes, Valid: true}
	}
	if order.ShippingPrice != nil {
		shippingPrice = sql.NullFloat64{Float64: *order.ShippingPrice, Valid: true}
	}

	ex := executorFor(ctx, r.db)
	_, err := ex.ExecContext(ctx, query,
		order.ID,
		customerName,
		order.CustomerPhone,
		order.BranchID,
		order.CreatorID,
		order.IsUrgent,
		shippingPrice,
		notes,
		order.CurrentStage.String(),
		order.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, p := range order.Products {
		if err := r.insertProduct(ctx, ex, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) insertProduct(ctx context.Context, ex executor, p *entity.Product) error {
	query := `
		INSERT INTO products (
			id, order_id, name, width, height, quantity, price, paper_type,
			needs_design, design_amount, needs_cut, needs_lamination
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var name, paperType sql.NullString
	var designAmount sql.NullFloat64
	if p.Name != "" {
		name = sql.NullString{String: p.Name, Valid: true}
	}
	if p.PaperType != "" {
		paperType = sql.NullString{String: p.PaperType, Valid: true}
	}
	if p.DesignAmount != nil {
		designAmount = sql.NullFloat64{Float64: *p.DesignAmount, Valid: true}
	}

	_, err := ex.ExecContext(ctx, query,
		p.ID,
		p.OrderID,
		name,
		p.Width,
		p.Height,
		p.Quantity,
		p.Price,
		paperType,
		p.NeedsDesign,
		designAmount,
		p.NeedsCut,
		p.NeedsLamination,
	)
	if err != nil {
		r.logger.Error("Failed to create product",
			zap.String("order_id", p.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its products, or nil when absent
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN branches b ON b.id = o.branch_id
		WHERE o.id = ?
	`

	order, err := r.scanOrder(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID",
			zap.String("order_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadProducts(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListAvailableForStages returns unclaimed orders at any of the given stages
func (r *OrderRepository) ListAvailableForStages(ctx context.Context, stages []stage.Stage) ([]*entity.Order, error) {
	if len(stages) == 0 {
		return []*entity.Order{}, nil
	}

	placeholders := strings.Repeat("?, ", len(stages)-1) + "?"
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN branches b ON b.id = o.branch_id
		WHERE o.current_stage IN (` + placeholders + `)
		AND NOT EXISTS (
			SELECT 1 FROM stage_claims c
			WHERE c.order_id = o.id AND c.completed_at IS NULL
		)
		ORDER BY o.created_at DESC
	`

	args := make([]interface{}, len(stages))
	for i, s := range stages {
		args[i] = s.String()
	}

	return r.queryOrders(ctx, query, args...)
}

// ListNotDeliveredBefore returns orders created before cutoff that have
// not reached the terminal stage
func (r *OrderRepository) ListNotDeliveredBefore(ctx context.Context, cutoff time.Time) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN branches b ON b.id = o.branch_id
		WHERE o.created_at < ? AND o.current_stage != ?
		ORDER BY o.created_at ASC
	`
	return r.queryOrders(ctx, query, cutoff, stage.StageDelivered.String())
}

// UpdateStage sets the order's current stage
func (r *OrderRepository) UpdateStage(ctx context.Context, orderID string, s stage.Stage) error {
	query := `UPDATE orders SET current_stage = ? WHERE id = ?`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, s.String(), orderID)
	if err != nil {
		r.logger.Error("Failed to update order stage",
			zap.String("order_id", orderID),
			zap.String("stage", s.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update order stage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	return nil
}

// UpdateNotes sets the order's free-text notes
func (r *OrderRepository) UpdateNotes(ctx context.Context, orderID, notes string) error {
	query := `UPDATE orders SET notes = ? WHERE id = ?`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, notes, orderID)
	if err != nil {
		r.logger.Error("Failed to update order notes",
			zap.String("order_id", orderID),
			zap.Error(err))
		return fmt.Errorf("failed to update order notes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	return nil
}

// UpdateShippingPrice sets the order's shipping price
func (r *OrderRepository) UpdateShippingPrice(ctx context.Context, orderID string, price float64) error {
	query := `UPDATE orders SET shipping_price = ? WHERE id = ?`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, price, orderID)
	if err != nil {
		r.logger.Error("Failed to update shipping price",
			zap.String("order_id", orderID),
			zap.Error(err))
		return fmt.Errorf("failed to update shipping price: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	return nil
}

// CreateBranch inserts a branch
func (r *OrderRepository) CreateBranch(ctx context.Context, branch *entity.Branch) error {
	query := `INSERT INTO branches (id, name, address) VALUES (?, ?, ?)`

	var address sql.NullString
	if branch.Address != "" {
		address = sql.NullString{String: branch.Address, Valid: true}
	}

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, branch.ID, branch.Name, address)
	if err != nil {
		r.logger.Error("Failed to create branch",
			zap.String("branch_id", branch.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

// ListBranches returns all branches ordered by name
func (r *OrderRepository) ListBranches(ctx context.Context) ([]*entity.Branch, error) {
	query := `SELECT id, name, address FROM branches ORDER BY name`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list branches", zap.Error(err))
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	branches := []*entity.Branch{}
	for rows.Next() {
		var b entity.Branch
		var address sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &address); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		b.Address = address.String
		branches = append(branches, &b)
	}
	return branches, rows.Err()
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*entity.Order{}
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := r.loadProducts(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *OrderRepository) scanOrder(row scanner) (*entity.Order, error) {
	var order entity.Order
	var customerName, branchName, notes sql.NullString
	var shippingPrice sql.NullFloat64
	var currentStage string

	err := row.Scan(
		&order.ID,
		&customerName,
		&order.CustomerPhone,
		&order.BranchID,
		&branchName,
		&order.CreatorID,
		&order.IsUrgent,
		&shippingPrice,
		&notes,
		&currentStage,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.CustomerName = customerName.String
	order.BranchName = branchName.String
	order.Notes = notes.String
	order.CurrentStage = stage.Stage(currentStage)
	if shippingPrice.Valid {
		order.ShippingPrice = &shippingPrice.Float64
	}
	return &order, nil
}

func (r *OrderRepository) loadProducts(ctx context.Context, order *entity.Order) error {
	query := `
		SELECT id, order_id, name, width, height, quantity, price, paper_type,
			needs_design, design_amount, needs_cut, needs_lamination
		FROM products
		WHERE order_id = ?
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, order.ID)
	if err != nil {
		r.logger.Error("Failed to load products",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p entity.Product
		var name, paperType sql.NullString
		var designAmount sql.NullFloat64

		err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&name,
			&p.Width,
			&p.Height,
			&p.Quantity,
			&p.Price,
			&paperType,
			&p.NeedsDesign,
			&designAmount,
			&p.NeedsCut,
			&p.NeedsLamination,
		)
		if err != nil {
			return fmt.Errorf("failed to scan product: %w", err)
		}

		p.Name = name.String
		p.PaperType = paperType.String
		if designAmount.Valid {
			p.DesignAmount = &designAmount.Float64
		}
		order.Products = append(order.Products, &p)
	}
	return rows.Err()
}
