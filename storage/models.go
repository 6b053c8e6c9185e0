package storage

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Entity names used for cache scoping, route registration and logging.
const (
	EntityProduct  = "product"
	EntityCustomer = "customer"
	EntityOrder    = "order"
	EntityDelivery = "delivery"
)

// Order lifecycle states.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// Delivery lifecycle states.
const (
	DeliveryStatusPreparing = "preparing"
	DeliveryStatusShipped   = "shipped"
	DeliveryStatusDelivered = "delivered"
)

// Product is a sellable item.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        int64           `bun:"id,pk,autoincrement" json:"id"`
	Name      string          `bun:"name,notnull" json:"name"`
	Price     decimal.Decimal `bun:"price,notnull" json:"price"`
	Stock     int             `bun:"stock,notnull,default:0" json:"stock"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Customer is a buyer account.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull" json:"email"`
	Phone     string    `bun:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Order ties a customer to a purchase.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64           `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64           `bun:"customer_id,notnull" json:"customer_id"`
	Status     string          `bun:"status,notnull" json:"status"`
	Total      decimal.Decimal `bun:"total,notnull" json:"total"`
	PlacedAt   time.Time       `bun:"placed_at,nullzero,notnull,default:current_timestamp" json:"placed_at"`
}

// Delivery tracks the shipment of an order.
type Delivery struct {
	bun.BaseModel `bun:"table:deliveries,alias:d"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	OrderID      int64      `bun:"order_id,notnull" json:"order_id"`
	Address      string     `bun:"address,notnull" json:"address"`
	TrackingCode string     `bun:"tracking_code,notnull" json:"tracking_code"`
	Status       string     `bun:"status,notnull" json:"status"`
	ShippedAt    *time.Time `bun:"shipped_at" json:"shipped_at,omitempty"`
}

// EntitySummary is the autocomplete result shape: at minimum an identifier
// and a display name, plus whatever the entity type adds. The JSON field
// names are a contract the HTTP envelope depends on.
type EntitySummary struct {
	ID    int64            `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

func (p *Product) summary() EntitySummary {
	price := p.Price
	return EntitySummary{ID: p.ID, Name: p.Name, Price: &price}
}

func (c *Customer) summary() EntitySummary {
	return EntitySummary{ID: c.ID, Name: c.Name, Email: c.Email}
}
