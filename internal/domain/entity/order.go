package entity

import (
	"time"

	"github.com/jetprint/print-workflow/internal/domain/stage"
)

// Order represents a customer print order moving through the pipeline
type Order struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone"`
	BranchID      string      `json:"branch_id"`
	BranchName    string      `json:"branch_name,omitempty"`
	CreatorID     string      `json:"creator_id"`
	IsUrgent      bool        `json:"is_urgent"`
	ShippingPrice *float64    `json:"shipping_price,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CurrentStage  stage.Stage `json:"current_stage"`
	Products      []*Product  `json:"products,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NeedsDesign reports whether any product on the order requires design
// work. The skip rule must consider the full product set.
func (o *Order) NeedsDesign() bool {
	for _, p := range o.Products {
		if p.NeedsDesign {
			return true
		}
	}
	return false
}

// Product represents a single item within an order
type Product struct {
	ID              string   `json:"id"`
	OrderID         string   `json:"order_id"`
	Name            string   `json:"name,omitempty"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Quantity        int      `json:"quantity"`
	Price           float64  `json:"price"`
	PaperType       string   `json:"paper_type,omitempty"`
	NeedsDesign     bool     `json:"needs_design"`
	DesignAmount    *float64 `json:"design_amount,omitempty"`
	NeedsCut        bool     `json:"needs_cut"`
	NeedsLamination bool     `json:"needs_lamination"`
}

// DesignFee returns the design charge for the product. A product that
// does not need design is never charged a design fee.
func (p *Product) DesignFee() float64 {
	if !p.NeedsDesign || p.DesignAmount == nil {
		return 0
	}
	return *p.DesignAmount
}

// Branch represents a shop location orders are created at
type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
