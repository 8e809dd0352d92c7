package store

import (
	"context"
	"errors"
	"time"

	"stoktakip/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrForbiddenCustomer = errors.New("operation not allowed for walk-in customer")
	ErrAmbiguousProduct  = errors.New("product lookup is ambiguous")
)

// Repository is the persistence boundary. Stock decrement is deliberately
// not part of the interface: the only way stock goes down is CreateSale,
// which keeps the all-or-nothing commit contract in one place.
type Repository interface {
	ListProducts(ctx context.Context, filter string) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCustomers(ctx context.Context, filter string, includeWalkIn bool) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	// DeleteCustomerCascade removes the customer together with every sale and
	// ledger entry referencing it, as one atomic operation.
	DeleteCustomerCascade(ctx context.Context, id int64) error

	// CreateSale executes the sale commit protocol atomically: insert the
	// sale, decrement stock for every line (re-checking sufficiency), and for
	// non-walk-in customers append a sale ledger entry and decrease the
	// balance by the sale total. Any failure rolls back every effect.
	CreateSale(ctx context.Context, sale domain.Sale, lines []domain.CartLine) (*domain.Sale, error)

	// PostLedgerEntry appends the entry and applies its balance effect in one
	// atomic step, returning the customer with the updated balance.
	PostLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.Customer, error)
	// LedgerHistory returns entries in chronological order.
	LedgerHistory(ctx context.Context, customerID int64) ([]domain.LedgerEntry, error)

	GetDashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
	GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error)
}
