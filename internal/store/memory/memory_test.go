package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stoktakip/internal/domain"
	"stoktakip/internal/store"
)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateSaleIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()

	p1, err := s.CreateProduct(ctx, domain.Product{Name: "A", StockQuantity: 5, SalePrice: amount("100")})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	p2, err := s.CreateProduct(ctx, domain.Product{Name: "B", StockQuantity: 1, SalePrice: amount("50")})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "K", Type: domain.CustomerTypeRetail})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	// Second line exceeds stock: the whole commit must fail with no effects,
	// even though the first line on its own would have been satisfiable.
	sale := domain.Sale{
		InvoiceNumber: "INV-20260901-11111",
		CustomerID:    customer.ID,
		SaleDate:      time.Now(),
		TotalAmount:   amount("300"),
	}
	lines := []domain.CartLine{
		{ProductID: p1.ID, Quantity: 2, UnitPrice: amount("100")},
		{ProductID: p2.ID, Quantity: 2, UnitPrice: amount("50")},
	}

	_, err = s.CreateSale(ctx, sale, lines)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got1, _ := s.GetProduct(ctx, p1.ID)
	got2, _ := s.GetProduct(ctx, p2.ID)
	if got1.StockQuantity != 5 || got2.StockQuantity != 1 {
		t.Fatalf("stock mutated on failed commit: %d, %d", got1.StockQuantity, got2.StockQuantity)
	}

	gotCustomer, _ := s.GetCustomer(ctx, customer.ID)
	if !gotCustomer.Balance.IsZero() {
		t.Fatalf("balance mutated on failed commit: %s", gotCustomer.Balance)
	}
	history, _ := s.LedgerHistory(ctx, customer.ID)
	if len(history) != 0 {
		t.Fatalf("ledger entries appended on failed commit: %d", len(history))
	}

	report, _ := s.GetSalesReport(ctx, time.Now().AddDate(0, 0, -1), time.Now())
	if report.Count != 0 {
		t.Fatalf("sale row persisted on failed commit")
	}
}

func TestCreateSalePostsLedgerForCreditCustomer(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.CreateProduct(ctx, domain.Product{Name: "A", StockQuantity: 5, SalePrice: amount("100")})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "K", Type: domain.CustomerTypeWholesale})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	_, err = s.CreateSale(ctx, domain.Sale{
		InvoiceNumber: "INV-20260901-22222",
		CustomerID:    customer.ID,
		SaleDate:      time.Now(),
		TotalAmount:   amount("200"),
	}, []domain.CartLine{{ProductID: p.ID, Quantity: 2, UnitPrice: amount("100")}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	gotCustomer, _ := s.GetCustomer(ctx, customer.ID)
	if !gotCustomer.Balance.Equal(amount("-200")) {
		t.Fatalf("expected balance -200, got %s", gotCustomer.Balance)
	}
	history, _ := s.LedgerHistory(ctx, customer.ID)
	if len(history) != 1 || history[0].Type != domain.EntryTypeSale || !history[0].Amount.Equal(amount("200")) {
		t.Fatalf("unexpected ledger history: %+v", history)
	}

	gotProduct, _ := s.GetProduct(ctx, p.ID)
	if gotProduct.StockQuantity != 3 {
		t.Fatalf("expected stock 3, got %d", gotProduct.StockQuantity)
	}
}

func TestCreateSaleWalkInSkipsLedger(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, _ := s.CreateProduct(ctx, domain.Product{Name: "A", StockQuantity: 5, SalePrice: amount("100")})

	_, err := s.CreateSale(ctx, domain.Sale{
		InvoiceNumber: "INV-20260901-33333",
		CustomerID:    domain.WalkInCustomerID,
		SaleDate:      time.Now(),
		TotalAmount:   amount("500"),
	}, []domain.CartLine{{ProductID: p.ID, Quantity: 5, UnitPrice: amount("100")}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	walkIn, _ := s.GetCustomer(ctx, domain.WalkInCustomerID)
	if !walkIn.Balance.IsZero() {
		t.Fatalf("walk-in balance mutated: %s", walkIn.Balance)
	}
	history, _ := s.LedgerHistory(ctx, domain.WalkInCustomerID)
	if len(history) != 0 {
		t.Fatalf("walk-in accrued ledger entries")
	}
}

func TestDeleteCustomerCascade(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, _ := s.CreateProduct(ctx, domain.Product{Name: "A", StockQuantity: 10, SalePrice: amount("10")})
	customer, _ := s.CreateCustomer(ctx, domain.Customer{Name: "K", Type: domain.CustomerTypeRetail})

	if _, err := s.CreateSale(ctx, domain.Sale{
		InvoiceNumber: "INV-20260901-44444",
		CustomerID:    customer.ID,
		SaleDate:      time.Now(),
		TotalAmount:   amount("10"),
	}, []domain.CartLine{{ProductID: p.ID, Quantity: 1, UnitPrice: amount("10")}}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := s.PostLedgerEntry(ctx, domain.LedgerEntry{
		CustomerID: customer.ID,
		Type:       domain.EntryTypeCollection,
		Amount:     amount("5"),
		Date:       time.Now(),
	}); err != nil {
		t.Fatalf("post entry: %v", err)
	}

	if err := s.DeleteCustomerCascade(ctx, customer.ID); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}

	if _, err := s.GetCustomer(ctx, customer.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("customer still present after cascade")
	}
	history, _ := s.LedgerHistory(ctx, customer.ID)
	if len(history) != 0 {
		t.Fatalf("ledger entries survived cascade")
	}
	report, _ := s.GetSalesReport(ctx, time.Now().AddDate(0, 0, -1), time.Now())
	if report.Count != 0 {
		t.Fatalf("sales survived cascade")
	}
}

func TestDeleteCustomerCascadeRejectsWalkIn(t *testing.T) {
	s := New()
	err := s.DeleteCustomerCascade(context.Background(), domain.WalkInCustomerID)
	if !errors.Is(err, store.ErrForbiddenCustomer) {
		t.Fatalf("expected ErrForbiddenCustomer, got %v", err)
	}
}

func TestGetDashboardStats(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	low, _ := s.CreateProduct(ctx, domain.Product{Name: "Low", StockQuantity: 2, SalePrice: amount("10"), LowStockThreshold: 5})
	lower, _ := s.CreateProduct(ctx, domain.Product{Name: "Lower", StockQuantity: 1, SalePrice: amount("10"), LowStockThreshold: 5})
	if _, err := s.CreateProduct(ctx, domain.Product{Name: "Fine", StockQuantity: 50, SalePrice: amount("10"), LowStockThreshold: 5}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	debtor, _ := s.CreateCustomer(ctx, domain.Customer{Name: "Debtor", Type: domain.CustomerTypeRetail})
	creditor, _ := s.CreateCustomer(ctx, domain.Customer{Name: "Creditor", Type: domain.CustomerTypeRetail})
	if _, err := s.PostLedgerEntry(ctx, domain.LedgerEntry{CustomerID: debtor.ID, Type: domain.EntryTypeDebt, Amount: amount("120"), Date: now}); err != nil {
		t.Fatalf("post debt: %v", err)
	}
	if _, err := s.PostLedgerEntry(ctx, domain.LedgerEntry{CustomerID: creditor.ID, Type: domain.EntryTypeCollection, Amount: amount("40"), Date: now}); err != nil {
		t.Fatalf("post collection: %v", err)
	}

	// One sale today, one yesterday; only today's counts.
	if _, err := s.CreateSale(ctx, domain.Sale{InvoiceNumber: "a", CustomerID: domain.WalkInCustomerID, SaleDate: now, TotalAmount: amount("30")},
		[]domain.CartLine{{ProductID: low.ID, Quantity: 1, UnitPrice: amount("30")}}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := s.CreateSale(ctx, domain.Sale{InvoiceNumber: "b", CustomerID: domain.WalkInCustomerID, SaleDate: now.AddDate(0, 0, -1), TotalAmount: amount("99")},
		[]domain.CartLine{{ProductID: lower.ID, Quantity: 1, UnitPrice: amount("99")}}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	stats, err := s.GetDashboardStats(ctx, now)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if !stats.TodaySales.Equal(amount("30")) {
		t.Fatalf("expected today sales 30, got %s", stats.TodaySales)
	}
	if stats.TotalProducts != 3 {
		t.Fatalf("expected 3 products, got %d", stats.TotalProducts)
	}
	// Only the negative balance counts toward outstanding debt.
	if !stats.TotalDebt.Equal(amount("120")) {
		t.Fatalf("expected total debt 120, got %s", stats.TotalDebt)
	}
	if len(stats.LowStock) != 2 {
		t.Fatalf("expected 2 low-stock products, got %d", len(stats.LowStock))
	}
	if stats.LowStock[0].StockQuantity > stats.LowStock[1].StockQuantity {
		t.Fatalf("low-stock list not ascending by stock")
	}
}
