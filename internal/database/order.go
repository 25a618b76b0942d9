package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restaurantapi/orders-service/internal/domain"
)

// OrderRepository is the durable record of orders and their items.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists an order and its items in one transaction, so a crash
// mid-write never leaves a half-written order or orphaned items.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, client_name, status, created_at)
		VALUES ($1, $2, $3, $4)
		`, o.ID, o.ClientName, string(o.Status), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if len(o.Items) > 0 {
		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (id, order_id, description, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)
				`, it.ID, o.ID, it.Description, it.Quantity, it.UnitPrice)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns the order with its items eagerly loaded, or
// domain.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_name, status, created_at
		FROM orders
		WHERE id = $1
		`, id).Scan(&o.ID, &o.ClientName, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.Status = domain.Status(status)

	items, err := r.itemsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return &o, nil
}

// ListActive returns every order not yet delivered, oldest first.
func (r *OrderRepository) ListActive(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_name, status, created_at
		FROM orders
		WHERE status <> 'delivered'
		ORDER BY created_at
		`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	ids := []string{}
	for rows.Next() {
		var (
			o      domain.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.ClientName, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = domain.Status(status)
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// Update persists the mutated status of an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
		`, o.ID, string(o.Status))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the order; items go with it via ON DELETE CASCADE.
// Deleting an absent id is a no-op, which makes concurrent terminal
// advances on the same order harmless.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, description, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY seq
		`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
