// Package postgres implements store.Repository on pgx/v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
)

// Store is a Repository backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Repository = (*Store)(nil)

// New wraps an existing pool. The caller owns its configuration.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

const itemColumns = `id, name, type, size, barcode, cost_price, selling_price, tax_rate, stock, created_at, updated_at`

func scanItem(row pgx.Row) (model.Item, error) {
	var it model.Item
	err := row.Scan(&it.ID, &it.Name, &it.Type, &it.Size, &it.Barcode, &it.CostPrice, &it.SellingPrice, &it.TaxRate, &it.Stock, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (s *Store) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Item, 0, 64)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id string) (model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	return it, mapErr(err)
}

func (s *Store) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	if item.ID == "" {
		item.ID = store.NewID()
	}
	it, err := scanItem(s.pool.QueryRow(ctx, `
		INSERT INTO items (id, name, type, size, barcode, cost_price, selling_price, tax_rate, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+itemColumns,
		item.ID, item.Name, item.Type, item.Size, item.Barcode, item.CostPrice, item.SellingPrice, item.TaxRate, item.Stock))
	return it, mapErr(err)
}

func (s *Store) UpdateItem(ctx context.Context, item model.Item) (model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, `
		UPDATE items
		SET name = $2, type = $3, size = $4, barcode = $5, cost_price = $6, selling_price = $7,
		    tax_rate = $8, stock = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		item.ID, item.Name, item.Type, item.Size, item.Barcode, item.CostPrice, item.SellingPrice, item.TaxRate, item.Stock))
	return it, mapErr(err)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const customerColumns = `id, name, phone, address, account_number, balance, created_at, updated_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.AccountNumber, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	customers := make([]model.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	return c, mapErr(err)
}

func (s *Store) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	if c.ID == "" {
		c.ID = store.NewID()
	}
	out, err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, phone, address, account_number, balance)
		VALUES ($1,$2,$3,$4,$5,0)
		RETURNING `+customerColumns,
		c.ID, c.Name, c.Phone, c.Address, c.AccountNumber))
	return out, mapErr(err)
}

func (s *Store) UpdateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	out, err := scanCustomer(s.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, account_number = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		c.ID, c.Name, c.Phone, c.Address, c.AccountNumber))
	return out, mapErr(err)
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateBill runs the ledger reconciliation in one transaction: stock is
// decremented with a conditional update per item so concurrent checkouts
// cannot overdraw it, then the bill, its lines and its ledger entries are
// written and the customer balance is moved by the remaining amount.
func (s *Store) CreateBill(ctx context.Context, bill model.Bill) (model.Bill, []model.Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.Bill{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance float64
	err = tx.QueryRow(ctx, `SELECT name, balance FROM customers WHERE id = $1 FOR UPDATE`, bill.CustomerID).
		Scan(&bill.CustomerName, &balance)
	if err != nil {
		return model.Bill{}, nil, mapErr(err)
	}

	need := make(map[string]int, len(bill.Items))
	ids := make([]string, 0, len(bill.Items))
	for _, line := range bill.Items {
		if _, seen := need[line.ItemID]; !seen {
			ids = append(ids, line.ItemID)
		}
		need[line.ItemID] += line.Quantity
	}
	// Fixed lock order keeps concurrent checkouts from deadlocking.
	sort.Strings(ids)
	for _, id := range ids {
		if err := decrementStock(ctx, tx, id, need[id]); err != nil {
			return model.Bill{}, nil, err
		}
	}

	if bill.ID == "" {
		bill.ID = store.NewID()
	}
	now := time.Now().UTC()
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = now
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bills (id, number, customer_id, subtotal, markup, discount, grand_total, payment_type, partial_payment, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, bill.ID, bill.Number, bill.CustomerID, bill.Subtotal, bill.Markup, bill.Discount, bill.GrandTotal,
		string(bill.PaymentType), bill.PartialPayment, string(bill.Status), bill.CreatedAt)
	if err != nil {
		return model.Bill{}, nil, mapErr(err)
	}
	for i, line := range bill.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO bill_items (bill_id, position, item_id, name, quantity, unit_price, custom_price, unit_cost, total, total_cost)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, bill.ID, i, line.ItemID, line.Name, line.Quantity, line.UnitPrice, line.CustomPrice, line.UnitCost, line.Total, line.TotalCost)
		if err != nil {
			return model.Bill{}, nil, mapErr(err)
		}
	}

	newBalance, entries := store.BillEntries(bill, balance, now)
	for _, entry := range entries {
		if err := insertTransaction(ctx, tx, entry); err != nil {
			return model.Bill{}, nil, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE customers SET balance = $2, updated_at = now() WHERE id = $1`, bill.CustomerID, newBalance); err != nil {
		return model.Bill{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Bill{}, nil, err
	}
	return bill, entries, nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, itemID string, qty int) error {
	var left int
	err := tx.QueryRow(ctx, `
		UPDATE items SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`, itemID, qty).Scan(&left)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	var available int
	if err := tx.QueryRow(ctx, `SELECT stock FROM items WHERE id = $1`, itemID).Scan(&available); err != nil {
		return mapErr(err)
	}
	return &store.StockError{ItemID: itemID, Requested: qty, Available: available}
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t model.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, customer_id, bill_id, type, amount, balance_after, payment_method, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.CustomerID, nullText(t.BillID), string(t.Type), t.Amount, t.BalanceAfter, string(t.PaymentMethod), t.Description, t.CreatedAt)
	return mapErr(err)
}

const billColumns = `b.id, b.number, b.customer_id, c.name, b.subtotal, b.markup, b.discount, b.grand_total, b.payment_type, b.partial_payment, b.status, b.created_at`

func scanBill(row pgx.Row) (model.Bill, error) {
	var b model.Bill
	var paymentType, status string
	err := row.Scan(&b.ID, &b.Number, &b.CustomerID, &b.CustomerName, &b.Subtotal, &b.Markup, &b.Discount, &b.GrandTotal, &paymentType, &b.PartialPayment, &status, &b.CreatedAt)
	b.PaymentType = model.PaymentMethod(paymentType)
	b.Status = model.BillStatus(status)
	return b, err
}

func (s *Store) ListBills(ctx context.Context, filter store.BillFilter) ([]model.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills b JOIN customers c ON c.id = b.customer_id
		WHERE ($1 = '' OR b.status = $1) AND ($2 = '' OR b.customer_id = $2)
		ORDER BY b.created_at DESC, b.number DESC
	`, string(filter.Status), filter.CustomerID)
	if err != nil {
		return nil, err
	}
	bills := make([]model.Bill, 0, 64)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bills = append(bills, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, bills); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) GetBill(ctx context.Context, id string) (model.Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills b JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1
	`, id))
	if err != nil {
		return model.Bill{}, mapErr(err)
	}
	bills := []model.Bill{b}
	if err := s.attachLines(ctx, bills); err != nil {
		return model.Bill{}, err
	}
	return bills[0], nil
}

func (s *Store) attachLines(ctx context.Context, bills []model.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]string, len(bills))
	index := make(map[string]int, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
		index[b.ID] = i
		bills[i].Items = []model.BillLine{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT bill_id, item_id, name, quantity, unit_price, custom_price, unit_cost, total, total_cost
		FROM bill_items
		WHERE bill_id = ANY($1)
		ORDER BY bill_id, position
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var billID string
		var l model.BillLine
		if err := rows.Scan(&billID, &l.ItemID, &l.Name, &l.Quantity, &l.UnitPrice, &l.CustomPrice, &l.UnitCost, &l.Total, &l.TotalCost); err != nil {
			return err
		}
		i := index[billID]
		bills[i].Items = append(bills[i].Items, l)
	}
	return rows.Err()
}

func (s *Store) CountBillsInYear(ctx context.Context, year int) (int, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM bills WHERE created_at >= $1 AND created_at < $2
	`, from, from.AddDate(1, 0, 0)).Scan(&n)
	return n, err
}

func (s *Store) ListTransactions(ctx context.Context, customerID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, bill_id, type, amount, balance_after, payment_method, description, created_at
		FROM transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC, seq DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0, 32)
	for rows.Next() {
		var t model.Transaction
		var billID pgtype.Text
		var typ, method string
		if err := rows.Scan(&t.ID, &t.CustomerID, &billID, &typ, &t.Amount, &t.BalanceAfter, &method, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.BillID = billID.String
		t.Type = model.TransactionType(typ)
		t.PaymentMethod = model.PaymentMethod(method)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) RecordPayment(ctx context.Context, p store.NewPayment) (model.Transaction, model.Customer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.Transaction{}, model.Customer{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customer, err := scanCustomer(tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, p.CustomerID))
	if err != nil {
		return model.Transaction{}, model.Customer{}, mapErr(err)
	}
	balance, entry := store.PaymentEntry(p, customer.Balance, time.Now().UTC())
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return model.Transaction{}, model.Customer{}, err
	}
	customer, err = scanCustomer(tx.QueryRow(ctx, `
		UPDATE customers SET balance = $2, updated_at = now() WHERE id = $1
		RETURNING `+customerColumns, p.CustomerID, balance))
	if err != nil {
		return model.Transaction{}, model.Customer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Transaction{}, model.Customer{}, err
	}
	return entry, customer, nil
}

func (s *Store) SaleFacts(ctx context.Context, from, to time.Time) ([]store.SaleFact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.created_at, b.payment_type, b.grand_total, COALESCE(sum(i.total_cost), 0)
		FROM bills b LEFT JOIN bill_items i ON i.bill_id = b.id
		WHERE b.created_at >= $1 AND b.created_at < $2
		GROUP BY b.id
		ORDER BY b.created_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]store.SaleFact, 0, 128)
	for rows.Next() {
		var f store.SaleFact
		var method string
		if err := rows.Scan(&f.BillID, &f.CreatedAt, &method, &f.GrandTotal, &f.TotalCost); err != nil {
			return nil, err
		}
		f.PaymentType = model.PaymentMethod(method)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) InsertDomainEvent(ctx context.Context, ev store.DomainEvent) (store.DomainEvent, error) {
	if ev.ID == "" {
		ev.ID = store.NewID()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload)
		VALUES ($1,$2,$3,$4)
		RETURNING occurred_at
	`, ev.ID, ev.Topic, ev.AggregateID, ev.Payload).Scan(&ev.OccurredAt)
	if err != nil {
		return store.DomainEvent{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
