package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkempf/shoppulse/internal/domain"
)

type ShopRepo struct {
	pool *pgxpool.Pool
}

func NewShopRepo(pool *pgxpool.Pool) *ShopRepo {
	return &ShopRepo{pool: pool}
}

const productColumns = "id, name, icon, price, stock"

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ShopRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return scanProducts(rows)
}

func (r *ShopRepo) ListProductsInStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+productColumns+" FROM products WHERE stock > 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products in stock: %w", err)
	}
	return scanProducts(rows)
}

func (r *ShopRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, username, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *ShopRepo) UpsertUser(ctx context.Context, username string) (*domain.User, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	var u domain.User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username) VALUES ($1)
		 ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id, username, created_at`,
		username,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

// ExecutePurchase runs the whole purchase in one transaction. Stock is
// checked and decremented by a single conditional UPDATE, so concurrent
// purchases serialize on the product row and can never jointly oversell.
func (r *ShopRepo) ExecutePurchase(ctx context.Context, userID, productID int64, quantity int) (*domain.Receipt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var username string
	err = tx.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", userID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var price float64
	err = tx.QueryRow(ctx, "SELECT price FROM products WHERE id = $1", productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	tag, err := tx.Exec(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
		quantity, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrInsufficientStock
	}

	purchase := domain.Purchase{
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: price * float64(quantity),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO purchases (user_id, product_id, quantity, total_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, purchase_date`,
		purchase.UserID, purchase.ProductID, purchase.Quantity, purchase.TotalPrice,
	).Scan(&purchase.ID, &purchase.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	var product domain.Product
	err = tx.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", productID).
		Scan(&product.ID, &product.Name, &product.Icon, &product.Price, &product.Stock)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.Receipt{Purchase: purchase, Username: username, Product: product}, nil
}

func (r *ShopRepo) History(ctx context.Context, limit int) ([]domain.PurchaseRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, u.username, pr.name, pr.icon, p.quantity, p.total_price, p.purchase_date
		 FROM purchases p
		 JOIN users u ON p.user_id = u.id
		 JOIN products pr ON p.product_id = pr.id
		 ORDER BY p.purchase_date DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase history: %w", err)
	}
	defer rows.Close()

	var records []domain.PurchaseRecord
	for rows.Next() {
		var rec domain.PurchaseRecord
		err := rows.Scan(&rec.ID, &rec.Username, &rec.Product, &rec.Icon, &rec.Quantity, &rec.TotalPrice, &rec.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearHistory deletes all purchases and resets every product to the
// given stock baseline, atomically.
func (r *ShopRepo) ClearHistory(ctx context.Context, stockBaseline int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM purchases"); err != nil {
		return fmt.Errorf("failed to delete purchases: %w", err)
	}
	if _, err := tx.Exec(ctx, "UPDATE products SET stock = $1", stockBaseline); err != nil {
		return fmt.Errorf("failed to reset stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
