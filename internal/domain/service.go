package domain

import "context"

// Broadcaster fans one event out to every registered connection.
// Delivery is best-effort; failed connections are dropped, never reported.
type Broadcaster interface {
	Broadcast(event Event)
}

// ShopService is the state mutator consumed by the transport layer. Every
// mutating call is one unit of work against the store; on success the
// resulting events have already been handed to the broadcaster.
type ShopService interface {
	Products(ctx context.Context) ([]Product, error)
	History(ctx context.Context) ([]PurchaseRecord, error)
	Stats(ctx context.Context) (*ShopStats, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
	SensorStats(ctx context.Context) ([]SensorStats, error)
	Alerts(ctx context.Context, limit int) ([]Alert, error)

	RegisterUser(ctx context.Context, username string) (*User, error)
	ExecutePurchase(ctx context.Context, userID, productID int64, quantity int) (*Receipt, error)
	ClearHistory(ctx context.Context) error
	RecordAlert(ctx context.Context, alert Alert) (*Alert, error)
}

// SimulatorControl exposes the start/stop surface of the purchase
// simulator. Both operations are idempotent.
type SimulatorControl interface {
	Start() bool
	Stop() bool
	Running() bool
}
