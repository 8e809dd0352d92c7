// Package postgres implements store.Repository on PostgreSQL via the pgx
// stdlib driver. Multi-step mutations (sale commit, ledger posting, customer
// cascade) run inside a single database transaction with rollback on any
// failure.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stoktakip/internal/domain"
	"stoktakip/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if absent and applies additive patches so older
// databases keep their rows when columns are introduced. It also seeds the
// fixed walk-in customer.
func (s *Store) Migrate(ctx context.Context, seedSamples bool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			stock_quantity INTEGER NOT NULL DEFAULT 0,
			sale_price NUMERIC(14,2) NOT NULL DEFAULT 0,
			low_stock_threshold INTEGER NOT NULL DEFAULT 10
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'retail',
			balance NUMERIC(14,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGSERIAL PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			customer_id BIGINT NOT NULL,
			sale_date TIMESTAMPTZ NOT NULL,
			total_amount NUMERIC(14,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_transactions (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			transaction_date TIMESTAMPTZ NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		// Additive patch: purchase_price arrived after the first release.
		`ALTER TABLE products ADD COLUMN IF NOT EXISTS purchase_price NUMERIC(14,2) NOT NULL DEFAULT 0`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, type, balance)
		VALUES ($1, 'Walk-in Customer', 'retail', 0)
		ON CONFLICT (id) DO NOTHING
	`, domain.WalkInCustomerID)
	if err != nil {
		return fmt.Errorf("seed walk-in customer: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		SELECT setval('customers_id_seq', GREATEST((SELECT COALESCE(MAX(id), 1) FROM customers), 1))
	`); err != nil {
		return fmt.Errorf("advance customer sequence: %w", err)
	}

	if seedSamples {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if count == 0 {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO products (name, stock_quantity, sale_price, low_stock_threshold, purchase_price)
				VALUES
					('Laptop Cooling Pad', 55, 249.90, 10, 150.00),
					('Wireless Mouse', 8, 99.90, 20, 45.00)
			`)
			if err != nil {
				return fmt.Errorf("seed sample products: %w", err)
			}
		}
	}

	return nil
}

const productColumns = `id, name, stock_quantity, purchase_price, sale_price, low_stock_threshold`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.StockQuantity, &p.PurchasePrice, &p.SalePrice, &p.LowStockThreshold)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, filter string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY id DESC
	`, strings.TrimSpace(filter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(query, 10, 64)
	if err != nil {
		id = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE '%' || $1 || '%' OR id = $2
		ORDER BY id
	`, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 8)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, stock_quantity, purchase_price, sale_price, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, product.Name, product.StockQuantity, product.PurchasePrice, product.SalePrice, product.LowStockThreshold).Scan(&product.ID)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, stock_quantity = $2, purchase_price = $3, sale_price = $4, low_stock_threshold = $5
		WHERE id = $6
	`, product.Name, product.StockQuantity, product.PurchasePrice, product.SalePrice, product.LowStockThreshold, product.ID)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, filter string, includeWalkIn bool) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, balance
		FROM customers
		WHERE name ILIKE '%' || $1 || '%' AND ($2 OR id <> $3)
		ORDER BY name
	`, strings.TrimSpace(filter), includeWalkIn, domain.WalkInCustomerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Balance); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, balance FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, type, balance)
		VALUES ($1, $2, 0)
		RETURNING id
	`, customer.Name, customer.Type).Scan(&customer.ID)
	if err != nil {
		return nil, err
	}
	customer.Balance = decimal.Zero
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	// Balance is never written here; it only moves with a ledger append.
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $1, type = $2
		WHERE id = $3
		RETURNING balance
	`, customer.Name, customer.Type, customer.ID).Scan(&customer.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) DeleteCustomerCascade(ctx context.Context, id int64) error {
	if id == domain.WalkInCustomerID {
		return store.ErrForbiddenCustomer
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE customer_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_transactions WHERE customer_id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, lines []domain.CartLine) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var customerExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)
	`, sale.CustomerID).Scan(&customerExists); err != nil {
		return nil, err
	}
	if !customerExists {
		return nil, store.ErrNotFound
	}

	// Re-check sufficiency inside the transaction: the add-to-cart check may
	// be stale by commit time.
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		var stock int
		err := tx.QueryRowContext(ctx, `
			SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE
		`, line.ProductID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if stock < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2
		`, line.Quantity, line.ProductID); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (invoice_number, customer_id, sale_date, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, sale.InvoiceNumber, sale.CustomerID, sale.SaleDate, sale.TotalAmount).Scan(&sale.ID)
	if err != nil {
		return nil, err
	}

	if sale.CustomerID != domain.WalkInCustomerID {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions (customer_id, type, amount, transaction_date, description)
			VALUES ($1, $2, $3, $4, $5)
		`, sale.CustomerID, domain.EntryTypeSale, sale.TotalAmount, sale.SaleDate, "Invoice "+sale.InvoiceNumber)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET balance = balance - $1 WHERE id = $2
		`, sale.TotalAmount, sale.CustomerID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) PostLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.Customer, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var c domain.Customer
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, type, balance FROM customers WHERE id = $1 FOR UPDATE
	`, entry.CustomerID).Scan(&c.ID, &c.Name, &c.Type, &c.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (customer_id, type, amount, transaction_date, description)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.CustomerID, entry.Type, entry.Amount, entry.Date, entry.Description); err != nil {
		return nil, err
	}

	c.Balance = c.Balance.Add(domain.BalanceEffect(entry.Type, entry.Amount))
	if _, err := tx.ExecContext(ctx, `
		UPDATE customers SET balance = $1 WHERE id = $2
	`, c.Balance, c.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) LedgerHistory(ctx context.Context, customerID int64) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, type, amount, transaction_date, description
		FROM ledger_transactions
		WHERE customer_id = $1
		ORDER BY transaction_date, id
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 32)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Type, &e.Amount, &e.Date, &e.Description); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GetDashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	var stats domain.DashboardStats

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
	`, dayStart, dayEnd).Scan(&stats.TodaySales)
	if err != nil {
		return stats, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&stats.TotalProducts); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ABS(balance)), 0) FROM customers WHERE balance < 0
	`).Scan(&stats.TotalDebt)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock_quantity <= low_stock_threshold
		ORDER BY stock_quantity
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.LowStock = make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return stats, err
		}
		stats.LowStock = append(stats.LowStock, p)
	}
	return stats, rows.Err()
}

func (s *Store) GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	report := domain.SalesReport{From: from, To: to, Rows: make([]domain.SalesReportRow, 0, 64), TotalSales: decimal.Zero}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.invoice_number, s.sale_date, c.name, s.total_amount
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		ORDER BY s.sale_date DESC
	`, from, to.AddDate(0, 0, 1))
	if err != nil {
		return report, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.SalesReportRow
		if err := rows.Scan(&row.InvoiceNumber, &row.SaleDate, &row.CustomerName, &row.TotalAmount); err != nil {
			return report, err
		}
		report.Rows = append(report.Rows, row)
		report.TotalSales = report.TotalSales.Add(row.TotalAmount)
	}
	report.Count = len(report.Rows)
	return report, rows.Err()
}
