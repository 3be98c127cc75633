package domain

import (
	"context"
	"time"
)

// --- Model types ---

type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Icon  string  `json:"icon"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Purchase struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ProductID    int64     `json:"product_id"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// Receipt is the result of a committed purchase: the purchase row plus
// the joined buyer name and the product row as it looks after the stock
// decrement.
type Receipt struct {
	Purchase Purchase
	Username string
	Product  Product
}

// PurchaseRecord is one row of the joined purchase history shown to
// clients.
type PurchaseRecord struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Product      string    `json:"name"`
	Icon         string    `json:"icon"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// --- Alerts ---

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityNormal   = "normal"
)

// KnownSeverity reports whether level is part of the fixed severity
// enumeration. Unknown levels may still be accepted depending on the
// configured policy.
func KnownSeverity(level string) bool {
	switch level {
	case SeverityCritical, SeverityWarning, SeverityNormal:
		return true
	}
	return false
}

type Alert struct {
	ID        int64     `json:"id"`
	SensorID  string    `json:"sensor_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// --- Aggregates ---

type TopBuyer struct {
	Username   string  `json:"username"`
	Purchases  int64   `json:"purchases"`
	TotalSpent float64 `json:"total_spent"`
}

type TopProduct struct {
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	TimesSold     int64  `json:"times_sold"`
	TotalQuantity int64  `json:"total_quantity"`
}

// ShopStats keys keep the camelCase names the dashboard already renders.
type ShopStats struct {
	TotalPurchases int64       `json:"totalPurchases"`
	TotalRevenue   float64     `json:"totalRevenue"`
	TopBuyer       *TopBuyer   `json:"topBuyer"`
	TopProduct     *TopProduct `json:"topProduct"`
}

type Dashboard struct {
	TotalAlerts   int64 `json:"total_alerts"`
	Critical      int64 `json:"critical"`
	Warning       int64 `json:"warning"`
	Normal        int64 `json:"normal"`
	ActiveSensors int64 `json:"active_sensors"`
}

type SensorStats struct {
	SensorID string    `json:"sensor_id"`
	LastSeen time.Time `json:"last_seen"`
	Total    int64     `json:"total"`
	Critical int64     `json:"critical"`
	Warning  int64     `json:"warning"`
	Normal   int64     `json:"normal"`
}

// --- Repository interfaces ---

// ShopRepository is the transactional store for products, users, and
// purchases. ExecutePurchase and ClearHistory run as single all-or-nothing
// transactions.
type ShopRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListProductsInStock(ctx context.Context) ([]Product, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpsertUser(ctx context.Context, username string) (*User, error)

	// ExecutePurchase checks stock and decrements it atomically; the
	// check-and-decrement must be a single conditional update so two
	// concurrent purchases can never jointly oversell.
	ExecutePurchase(ctx context.Context, userID, productID int64, quantity int) (*Receipt, error)

	History(ctx context.Context, limit int) ([]PurchaseRecord, error)
	ClearHistory(ctx context.Context, stockBaseline int) error
}

type AlertRepository interface {
	Insert(ctx context.Context, alert Alert) (*Alert, error)
	List(ctx context.Context, limit int) ([]Alert, error)
}

// StatsRepository computes derived read-only views on demand. No caching,
// no incremental maintenance; every call hits the store.
type StatsRepository interface {
	ShopStats(ctx context.Context) (*ShopStats, error)
	Dashboard(ctx context.Context, alertWindow, sensorWindow time.Duration) (*Dashboard, error)
	SensorStats(ctx context.Context) ([]SensorStats, error)
}
