package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/tkempf/shoppulse/internal/domain"
)

const dialectPostgres = "postgres"

// StatsRepo computes aggregate views with queries built through goqu.
// Nothing is cached; every call reflects the store at call time. The
// clock supplies the reference point for windowed queries.
type StatsRepo struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

func NewStatsRepo(pool *pgxpool.Pool, clock clockwork.Clock) *StatsRepo {
	return &StatsRepo{pool: pool, clock: clock}
}

func (r *StatsRepo) ShopStats(ctx context.Context) (*domain.ShopStats, error) {
	stats := &domain.ShopStats{}

	totalsSQL, _, err := goqu.Dialect(dialectPostgres).
		From("purchases").
		Select(
			goqu.COUNT(goqu.Star()),
			goqu.COALESCE(goqu.SUM("total_price"), 0),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build totals query: %w", err)
	}
	if err := r.pool.QueryRow(ctx, totalsSQL).Scan(&stats.TotalPurchases, &stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to load purchase totals: %w", err)
	}

	// The top buyer is ranked by purchase count; spend is informational.
	topBuyerSQL, _, err := goqu.Dialect(dialectPostgres).
		From(goqu.T("purchases").As("p")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("p.user_id").Eq(goqu.I("u.id")))).
		Select(
			goqu.I("u.username"),
			goqu.COUNT(goqu.I("p.id")).As("purchases"),
			goqu.SUM(goqu.I("p.total_price")).As("total_spent"),
		).
		GroupBy(goqu.I("u.username")).
		Order(goqu.I("purchases").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build top buyer query: %w", err)
	}

	var buyer domain.TopBuyer
	err = r.pool.QueryRow(ctx, topBuyerSQL).Scan(&buyer.Username, &buyer.Purchases, &buyer.TotalSpent)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// no purchases yet
	case err != nil:
		return nil, fmt.Errorf("failed to load top buyer: %w", err)
	default:
		stats.TopBuyer = &buyer
	}

	topProductSQL, _, err := goqu.Dialect(dialectPostgres).
		From(goqu.T("purchases").As("p")).
		Join(goqu.T("products").As("pr"), goqu.On(goqu.I("p.product_id").Eq(goqu.I("pr.id")))).
		Select(
			goqu.I("pr.name"),
			goqu.I("pr.icon"),
			goqu.COUNT(goqu.I("p.id")).As("times_sold"),
			goqu.SUM(goqu.I("p.quantity")).As("total_quantity"),
		).
		GroupBy(goqu.I("pr.name"), goqu.I("pr.icon")).
		Order(goqu.I("times_sold").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build top product query: %w", err)
	}

	var product domain.TopProduct
	err = r.pool.QueryRow(ctx, topProductSQL).Scan(&product.Name, &product.Icon, &product.TimesSold, &product.TotalQuantity)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// no purchases yet
	case err != nil:
		return nil, fmt.Errorf("failed to load top product: %w", err)
	default:
		stats.TopProduct = &product
	}

	return stats, nil
}

func (r *StatsRepo) Dashboard(ctx context.Context, alertWindow, sensorWindow time.Duration) (*domain.Dashboard, error) {
	alertCutoff := r.clock.Now().Add(-alertWindow)
	countsSQL, countsArgs, err := goqu.Dialect(dialectPostgres).
		From("alerts").
		Select(
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityCritical).As("critical"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityWarning).As("warning"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityNormal).As("normal"),
		).
		Where(goqu.C("timestamp").Gte(alertCutoff)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build alert counts query: %w", err)
	}

	dashboard := &domain.Dashboard{}
	err = r.pool.QueryRow(ctx, countsSQL, countsArgs...).
		Scan(&dashboard.TotalAlerts, &dashboard.Critical, &dashboard.Warning, &dashboard.Normal)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert counts: %w", err)
	}

	sensorCutoff := r.clock.Now().Add(-sensorWindow)
	sensorsSQL, sensorsArgs, err := goqu.Dialect(dialectPostgres).
		From("alerts").
		Select(goqu.L("COUNT(DISTINCT sensor_id)")).
		Where(goqu.C("timestamp").Gte(sensorCutoff)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build active sensors query: %w", err)
	}
	if err := r.pool.QueryRow(ctx, sensorsSQL, sensorsArgs...).Scan(&dashboard.ActiveSensors); err != nil {
		return nil, fmt.Errorf("failed to load active sensors: %w", err)
	}

	return dashboard, nil
}

func (r *StatsRepo) SensorStats(ctx context.Context) ([]domain.SensorStats, error) {
	statsSQL, args, err := goqu.Dialect(dialectPostgres).
		From("alerts").
		Select(
			goqu.C("sensor_id"),
			goqu.MAX("timestamp").As("last_seen"),
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityCritical).As("critical"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityWarning).As("warning"),
			goqu.L("COUNT(*) FILTER (WHERE level = ?)", domain.SeverityNormal).As("normal"),
		).
		GroupBy(goqu.C("sensor_id")).
		Order(goqu.I("last_seen").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build sensor stats query: %w", err)
	}

	rows, err := r.pool.Query(ctx, statsSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load sensor stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.SensorStats
	for rows.Next() {
		var s domain.SensorStats
		err := rows.Scan(&s.SensorID, &s.LastSeen, &s.Total, &s.Critical, &s.Warning, &s.Normal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
