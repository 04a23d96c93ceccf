package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

var ErrUnknownKind = errors.New("unknown availability kind")

// MySQLStore is the primary durable backend. It keeps one row per map entry
// (the per-key AvailabilityRecord layout), one row per order and an
// append-only audit_log table. It satisfies AvailabilityStore,
// OrderRepository and AuditLog.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func availabilityTable(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindProducts:
		return "product_availability", nil
	case domain.KindFlavors:
		return "flavor_availability", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (m *MySQLStore) LoadAll(ctx context.Context, kind domain.Kind) (domain.AvailabilityMap, error) {
	table, err := availabilityTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, `SELECT item_key, is_available FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := domain.AvailabilityMap{}
	for rows.Next() {
		var key string
		var available bool
		if err := rows.Scan(&key, &available); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[key] = available
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func (m *MySQLStore) SaveBulk(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) error {
	table, err := availabilityTable(kind)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+table+` (item_key, is_available, last_updated, updated_by)
		VALUES (?, ?, NOW(), ?)
		ON DUPLICATE KEY UPDATE is_available = VALUES(is_available),
			last_updated = NOW(), updated_by = VALUES(updated_by)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for key, available := range patch {
		if _, err := stmt.ExecContext(ctx, key, available, actor); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", table, key, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLStore) Clear(ctx context.Context, kind domain.Kind) error {
	table, err := availabilityTable(kind)
	if err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) CreateOrder(ctx context.Context, order domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer, items, total_amount, delivery_fee,
			status, paid, pix_txid, pix_payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Customer, items, order.TotalAmount, order.DeliveryFee,
		order.Status, order.Paid, order.Pix.TxID, order.Pix.Payload,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var items []byte
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer, items, total_amount, delivery_fee,
			status, paid, pix_txid, pix_payload, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.Customer, &items, &order.TotalAmount, &order.DeliveryFee,
		&order.Status, &order.Paid, &order.Pix.TxID, &order.Pix.Payload,
		&order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	order.Pix.Amount = order.TotalAmount
	order.Pix.CreatedAt = order.CreatedAt
	return &order, nil
}

func (m *MySQLStore) MarkPaid(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET paid = TRUE, status = ?, updated_at = NOW()
		WHERE id = ?`, domain.OrderStatusConfirmed, id)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("order %s not found", id)
	}
	return nil
}

func (m *MySQLStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, kind, actor, entry_count, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Action, string(entry.Kind), entry.Actor, entry.Count, entry.At,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
