package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkempf/shoppulse/internal/domain"
)

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) Insert(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO alerts (sensor_id, level, message, value)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, timestamp`,
		alert.SensorID, alert.Level, alert.Message, alert.Value,
	).Scan(&alert.ID, &alert.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert alert: %w", err)
	}
	return &alert, nil
}

func (r *AlertRepo) List(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, sensor_id, level, message, value, timestamp
		 FROM alerts
		 ORDER BY timestamp DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.SensorID, &a.Level, &a.Message, &a.Value, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
