// Package memory implements store.Repository with mutex-protected maps. It
// backs tests and runs the server when no DATABASE_URL is configured.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stoktakip/internal/domain"
	"stoktakip/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	products     map[int64]domain.Product
	customers    map[int64]domain.Customer
	sales        []domain.Sale
	ledger       []domain.LedgerEntry
	nextProduct  int64
	nextCustomer int64
	nextSale     int64
	nextEntry    int64
}

// New returns a store holding only the seeded walk-in customer.
func New() *Store {
	s := &Store{
		products:     make(map[int64]domain.Product),
		customers:    make(map[int64]domain.Customer),
		nextProduct:  1,
		nextCustomer: 2, // id 1 is reserved for the walk-in customer
		nextSale:     1,
		nextEntry:    1,
	}
	s.customers[domain.WalkInCustomerID] = domain.Customer{
		ID:      domain.WalkInCustomerID,
		Name:    "Walk-in Customer",
		Type:    domain.CustomerTypeRetail,
		Balance: decimal.Zero,
	}
	return s
}

// NewSeeded returns a store with a couple of sample products, matching the
// first-run seeding of a fresh installation.
func NewSeeded() *Store {
	s := New()
	for _, p := range []domain.Product{
		{Name: "Laptop Cooling Pad", StockQuantity: 55, SalePrice: decimal.RequireFromString("249.90"), PurchasePrice: decimal.RequireFromString("150.00"), LowStockThreshold: 10},
		{Name: "Wireless Mouse", StockQuantity: 8, SalePrice: decimal.RequireFromString("99.90"), PurchasePrice: decimal.RequireFromString("45.00"), LowStockThreshold: 20},
	} {
		p.ID = s.nextProduct
		s.nextProduct++
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context, filter string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter != "" && !strings.Contains(strings.ToLower(p.Name), filter) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	id, idErr := strconv.ParseInt(query, 10, 64)
	needle := strings.ToLower(query)

	out := make([]domain.Product, 0, 4)
	for _, p := range s.products {
		if (idErr == nil && p.ID == id) || strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextProduct
	s.nextProduct++
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context, filter string, includeWalkIn bool) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !includeWalkIn && c.ID == domain.WalkInCustomerID {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.nextCustomer
	s.nextCustomer++
	customer.Balance = decimal.Zero
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Balance is only mutated together with a ledger append.
	customer.Balance = existing.Balance
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteCustomerCascade(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == domain.WalkInCustomerID {
		return store.ErrForbiddenCustomer
	}
	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.customers, id)

	sales := s.sales[:0]
	for _, sale := range s.sales {
		if sale.CustomerID != id {
			sales = append(sales, sale)
		}
	}
	s.sales = sales

	ledger := s.ledger[:0]
	for _, entry := range s.ledger {
		if entry.CustomerID != id {
			ledger = append(ledger, entry)
		}
	}
	s.ledger = ledger
	return nil
}

// CreateSale validates every line before touching any state, so a failure
// leaves the store exactly as it was (the in-memory equivalent of a rollback).
func (s *Store) CreateSale(_ context.Context, sale domain.Sale, lines []domain.CartLine) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(lines) == 0 {
		return nil, store.ErrEmptyCart
	}
	if _, ok := s.customers[sale.CustomerID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		p, ok := s.products[line.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if p.StockQuantity < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	for _, line := range lines {
		p := s.products[line.ProductID]
		p.StockQuantity -= line.Quantity
		s.products[line.ProductID] = p
	}

	sale.ID = s.nextSale
	s.nextSale++
	s.sales = append(s.sales, sale)

	if sale.CustomerID != domain.WalkInCustomerID {
		entry := domain.LedgerEntry{
			ID:          s.nextEntry,
			CustomerID:  sale.CustomerID,
			Type:        domain.EntryTypeSale,
			Amount:      sale.TotalAmount,
			Date:        sale.SaleDate,
			Description: "Invoice " + sale.InvoiceNumber,
		}
		s.nextEntry++
		s.ledger = append(s.ledger, entry)

		c := s.customers[sale.CustomerID]
		c.Balance = c.Balance.Add(domain.BalanceEffect(entry.Type, entry.Amount))
		s.customers[sale.CustomerID] = c
	}

	return &sale, nil
}

func (s *Store) PostLedgerEntry(_ context.Context, entry domain.LedgerEntry) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[entry.CustomerID]
	if !ok {
		return nil, store.ErrNotFound
	}

	entry.ID = s.nextEntry
	s.nextEntry++
	s.ledger = append(s.ledger, entry)

	c.Balance = c.Balance.Add(domain.BalanceEffect(entry.Type, entry.Amount))
	s.customers[entry.CustomerID] = c
	return &c, nil
}

func (s *Store) LedgerHistory(_ context.Context, customerID int64) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LedgerEntry, 0, 16)
	for _, entry := range s.ledger {
		if entry.CustomerID == customerID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) GetDashboardStats(_ context.Context, now time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{
		TodaySales:    decimal.Zero,
		TotalDebt:     decimal.Zero,
		TotalProducts: len(s.products),
		LowStock:      make([]domain.Product, 0, 8),
	}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	for _, sale := range s.sales {
		if !sale.SaleDate.Before(dayStart) && sale.SaleDate.Before(dayEnd) {
			stats.TodaySales = stats.TodaySales.Add(sale.TotalAmount)
		}
	}

	for _, c := range s.customers {
		if c.Balance.IsNegative() {
			stats.TotalDebt = stats.TotalDebt.Add(c.Balance.Abs())
		}
	}

	for _, p := range s.products {
		if p.StockQuantity <= p.LowStockThreshold {
			stats.LowStock = append(stats.LowStock, p)
		}
	}
	sort.Slice(stats.LowStock, func(i, j int) bool {
		return stats.LowStock[i].StockQuantity < stats.LowStock[j].StockQuantity
	})

	return stats, nil
}

func (s *Store) GetSalesReport(_ context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesReport{
		From:       from,
		To:         to,
		Rows:       make([]domain.SalesReportRow, 0, 32),
		TotalSales: decimal.Zero,
	}

	// The report range is inclusive of the whole end day.
	end := to.AddDate(0, 0, 1)
	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(end) {
			continue
		}
		name := ""
		if c, ok := s.customers[sale.CustomerID]; ok {
			name = c.Name
		}
		report.Rows = append(report.Rows, domain.SalesReportRow{
			InvoiceNumber: sale.InvoiceNumber,
			SaleDate:      sale.SaleDate,
			CustomerName:  name,
			TotalAmount:   sale.TotalAmount,
		})
		report.TotalSales = report.TotalSales.Add(sale.TotalAmount)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].SaleDate.After(report.Rows[j].SaleDate) })
	report.Count = len(report.Rows)
	return report, nil
}
