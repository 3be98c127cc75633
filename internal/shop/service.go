// Package shop implements the state mutator behind both transport
// surfaces. Every mutating operation is one unit of work against the
// store; events for completed changes are handed to the broadcaster
// before the call returns.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/tkempf/shoppulse/internal/config"
	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/metrics"
)

const (
	maxUsernameLength = 64

	defaultAlertLimit = 50
	maxAlertLimit     = 200

	// Aggregation windows for the dashboard view.
	alertWindow  = 24 * time.Hour
	sensorWindow = 5 * time.Minute
)

type Service struct {
	shopRepo  domain.ShopRepository
	alertRepo domain.AlertRepository
	statsRepo domain.StatsRepository

	broadcaster domain.Broadcaster
	clock       clockwork.Clock

	// statsGroup collapses concurrent aggregate recomputations; a
	// get_stats storm or a burst of post-purchase refreshes runs the
	// underlying queries once and shares the result.
	statsGroup singleflight.Group

	historyLimit   int
	stockBaseline  int
	severityPolicy string
}

func NewService(
	shopRepo domain.ShopRepository,
	alertRepo domain.AlertRepository,
	statsRepo domain.StatsRepository,
	broadcaster domain.Broadcaster,
	clock clockwork.Clock,
	cfg *config.Config,
) *Service {
	return &Service{
		shopRepo:       shopRepo,
		alertRepo:      alertRepo,
		statsRepo:      statsRepo,
		broadcaster:    broadcaster,
		clock:          clock,
		historyLimit:   cfg.HistoryLimit,
		stockBaseline:  cfg.StockBaseline,
		severityPolicy: cfg.SeverityPolicy,
	}
}

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	return s.shopRepo.ListProducts(ctx)
}

func (s *Service) History(ctx context.Context) ([]domain.PurchaseRecord, error) {
	return s.shopRepo.History(ctx, s.historyLimit)
}

func (s *Service) Stats(ctx context.Context) (*domain.ShopStats, error) {
	v, err, _ := s.statsGroup.Do("shop_stats", func() (any, error) {
		return s.statsRepo.ShopStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ShopStats), nil
}

func (s *Service) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	v, err, _ := s.statsGroup.Do("dashboard", func() (any, error) {
		return s.statsRepo.Dashboard(ctx, alertWindow, sensorWindow)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Dashboard), nil
}

func (s *Service) SensorStats(ctx context.Context) ([]domain.SensorStats, error) {
	return s.statsRepo.SensorStats(ctx)
}

func (s *Service) Alerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	return s.alertRepo.List(ctx, limit)
}

func (s *Service) RegisterUser(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return nil, domain.ErrInvalidUsername
	}
	return s.shopRepo.UpsertUser(ctx, username)
}

// ExecutePurchase runs the purchase transaction and, on success,
// broadcasts the purchase notification and the updated stock of the
// bought product. The receipt is returned so the transport layer can
// confirm to the buyer alone.
func (s *Service) ExecutePurchase(ctx context.Context, userID, productID int64, quantity int) (*domain.Receipt, error) {
	if quantity < 1 {
		metrics.PurchasesTotal.WithLabelValues("rejected_invalid").Inc()
		return nil, domain.ErrInvalidQuantity
	}

	receipt, err := s.shopRepo.ExecutePurchase(ctx, userID, productID, quantity)
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues(purchaseOutcome(err)).Inc()
		return nil, err
	}
	metrics.PurchasesTotal.WithLabelValues("accepted").Inc()

	now := s.clock.Now()
	s.broadcaster.Broadcast(domain.NewPurchaseNotificationEvent(receipt, now))
	s.broadcaster.Broadcast(domain.NewStockUpdateEvent(receipt.Product, now))

	return receipt, nil
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrProductNotFound):
		return "rejected_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "rejected_stock"
	default:
		return "failed"
	}
}

// ClearHistory wipes all purchases, resets every product to the
// configured stock baseline, and announces both to all clients.
func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.shopRepo.ClearHistory(ctx, s.stockBaseline); err != nil {
		return err
	}

	now := s.clock.Now()
	s.broadcaster.Broadcast(domain.NewHistoryClearedEvent(now))

	products, err := s.shopRepo.ListProducts(ctx)
	if err != nil {
		slog.Error("failed to reload products after history clear", "error", err)
		return nil
	}
	s.broadcaster.Broadcast(domain.NewProductsEvent(products, now))
	return nil
}

// RecordAlert validates, persists, and broadcasts an alert. With the
// strict severity policy unknown levels are rejected; the open policy
// stores them verbatim.
func (s *Service) RecordAlert(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
	alert.SensorID = strings.TrimSpace(alert.SensorID)
	alert.Level = strings.TrimSpace(alert.Level)
	if alert.SensorID == "" || alert.Message == "" || alert.Level == "" {
		return nil, domain.ErrInvalidAlert
	}
	if s.severityPolicy == config.SeverityPolicyStrict && !domain.KnownSeverity(alert.Level) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSeverity, alert.Level)
	}

	inserted, err := s.alertRepo.Insert(ctx, alert)
	if err != nil {
		return nil, err
	}
	metrics.AlertsRecordedTotal.WithLabelValues(inserted.Level).Inc()

	s.broadcaster.Broadcast(domain.NewAlertEvent(inserted, s.clock.Now()))
	return inserted, nil
}

// SimulatePurchase synthesizes one purchase: a random registered user
// buys a random in-stock product with a quantity of 1 up to
// min(stock, maxQuantity). Returns nil without error when there is
// nothing to buy or nobody to buy it.
func (s *Service) SimulatePurchase(ctx context.Context, maxQuantity int) (*domain.Receipt, error) {
	products, err := s.shopRepo.ListProductsInStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pick product: %w", err)
	}
	if len(products) == 0 {
		slog.Info("simulator tick skipped, everything sold out")
		return nil, nil
	}

	users, err := s.shopRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pick user: %w", err)
	}
	if len(users) == 0 {
		slog.Info("simulator tick skipped, no registered users")
		return nil, nil
	}

	product := products[rand.IntN(len(products))]
	user := users[rand.IntN(len(users))]
	quantity := 1 + rand.IntN(min(product.Stock, maxQuantity))

	receipt, err := s.ExecutePurchase(ctx, user.ID, product.ID, quantity)
	if err != nil {
		return nil, err
	}

	s.BroadcastRefresh(ctx)
	return receipt, nil
}

// BroadcastRefresh pushes fresh history and stats snapshots to all
// clients. Failures are logged, never returned; a refresh is advisory.
func (s *Service) BroadcastRefresh(ctx context.Context) {
	now := s.clock.Now()

	history, err := s.shopRepo.History(ctx, s.historyLimit)
	if err != nil {
		slog.Error("failed to load history for refresh", "error", err)
	} else {
		s.broadcaster.Broadcast(domain.NewHistoryEvent(history, now))
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		slog.Error("failed to load stats for refresh", "error", err)
	} else {
		s.broadcaster.Broadcast(domain.NewStatsEvent(stats, now))
	}
}

// SeedUsers upserts the given usernames so the simulator always has
// buyers. Called once at startup.
func (s *Service) SeedUsers(ctx context.Context, usernames []string) error {
	for _, username := range usernames {
		if _, err := s.shopRepo.UpsertUser(ctx, username); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", username, err)
		}
	}
	slog.Info("virtual users seeded", "count", len(usernames))
	return nil
}
