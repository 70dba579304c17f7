package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/domain"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) execTX(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Create inserts the order, its items and the user's history entry in one
// transaction, so a half-created order can never be observed.
func (r *OrderRepo) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	addr, err := json.Marshal(order.Address)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal address: %w", err)
	}

	err = r.execTX(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, amount, address, payment_method, payment_status, status, payment_source, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			order.ID, order.UserID, order.Amount, addr,
			string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status), string(order.PaymentSource),
			order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, product_id, name, unit_price, quantity, image)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				order.ID, i, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Image,
			)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_orders (user_id, order_id, created_at)
			VALUES ($1, $2, $3)`,
			order.UserID, order.ID, order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append user history: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, address, payment_method, payment_status, status, payment_source, processor_intent_id, created_at, updated_at
		FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, image
		FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Image); err != nil {
			return domain.Order{}, fmt.Errorf("scan item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListByUser returns the user's orders newest-first, items included,
// assembled from a single joined query.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.amount, o.address, o.payment_method, o.payment_status, o.status, o.payment_source, o.processor_intent_id, o.created_at, o.updated_at,
		       i.product_id, i.name, i.unit_price, i.quantity, i.image
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id, i.position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*domain.Order{}
	var ordered []*domain.Order
	for rows.Next() {
		var (
			o             domain.Order
			addr          []byte
			method        string
			payStatus     string
			status        string
			source        sql.NullString
			intentID      sql.NullString
			itemProductID sql.NullString
			itemName      sql.NullString
			itemPrice     decimal.NullDecimal
			itemQuantity  sql.NullInt32
			itemImage     sql.NullString
		)
		err := rows.Scan(&o.ID, &o.UserID, &o.Amount, &addr, &method, &payStatus, &status, &source, &intentID, &o.CreatedAt, &o.UpdatedAt,
			&itemProductID, &itemName, &itemPrice, &itemQuantity, &itemImage)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		existing, ok := byID[o.ID]
		if !ok {
			if err := json.Unmarshal(addr, &o.Address); err != nil {
				return nil, fmt.Errorf("unmarshal address: %w", err)
			}
			o.PaymentMethod = domain.PaymentMethod(method)
			o.PaymentStatus = domain.PaymentStatus(payStatus)
			o.Status = domain.OrderStatus(status)
			o.PaymentSource = domain.PaymentSource(source.String)
			o.ProcessorIntentID = intentID.String
			existing = &o
			byID[o.ID] = existing
			ordered = append(ordered, existing)
		}
		if itemProductID.Valid {
			existing.Items = append(existing.Items, domain.OrderItem{
				ProductID: itemProductID.String,
				Name:      itemName.String,
				UnitPrice: itemPrice.Decimal,
				Quantity:  itemQuantity.Int32,
				Image:     itemImage.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(ordered))
	for _, o := range ordered {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *OrderRepo) SetProcessorIntent(ctx context.Context, orderID, intentID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET processor_intent_id = $1, updated_at = $2 WHERE id = $3`,
		intentID, time.Now().UTC(), orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePaymentState is the per-order serialization point: the row only
// changes if payment_status still holds the value the caller planned
// against, so concurrent transitions cannot interleave.
func (r *OrderRepo) UpdatePaymentState(ctx context.Context, orderID string, expect domain.PaymentStatus, tr domain.PaymentTransition) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, status = $2, payment_source = $3, updated_at = $4
		WHERE id = $5 AND payment_status = $6`,
		string(tr.PaymentStatus), string(tr.Status), string(tr.Source), time.Now().UTC(),
		orderID, string(expect))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o         domain.Order
		addr      []byte
		method    string
		payStatus string
		status    string
		source    sql.NullString
		intentID  sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Amount, &addr, &method, &payStatus, &status, &source, &intentID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(addr, &o.Address); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal address: %w", err)
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	o.Status = domain.OrderStatus(status)
	o.PaymentSource = domain.PaymentSource(source.String)
	o.ProcessorIntentID = intentID.String
	return o, nil
}
