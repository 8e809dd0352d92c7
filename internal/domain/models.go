package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalkInCustomerID is the fixed customer used for anonymous cash sales.
// It is seeded on first run, never accrues ledger entries, and its balance
// stays at zero because no code path posts to it.
const WalkInCustomerID int64 = 1

const (
	CustomerTypeRetail    = "retail"
	CustomerTypeWholesale = "wholesale"
)

const (
	EntryTypeSale       = "sale"
	EntryTypeDebt       = "debt"
	EntryTypeCollection = "collection"
)

type Product struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	StockQuantity     int             `json:"stock_quantity"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	LowStockThreshold int             `json:"low_stock_threshold"`
}

// ProductCreateRequest carries raw form values. Price fields stay strings so
// the input layer can pass them through unparsed ("249,90", "1.234,56"); the
// service re-validates and parses them regardless of what the form checked.
type ProductCreateRequest struct {
	Name              string `json:"name"`
	StockQuantity     int    `json:"stock_quantity"`
	PurchasePrice     string `json:"purchase_price"`
	SalePrice         string `json:"sale_price"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type ProductUpdateRequest struct {
	Name              *string `json:"name,omitempty"`
	StockQuantity     *int    `json:"stock_quantity,omitempty"`
	PurchasePrice     *string `json:"purchase_price,omitempty"`
	SalePrice         *string `json:"sale_price,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
}

// Customer balance sign convention: negative means the customer owes the
// business, positive means the business owes the customer.
type Customer struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

type CustomerCreateRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type CustomerUpdateRequest struct {
	Name *string `json:"name,omitempty"`
	Type *string `json:"type,omitempty"`
}

// Sale is immutable once created. It carries no per-line detail; the line
// breakdown only exists in the cart that produced it and on the rendered
// invoice document.
type Sale struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    int64           `json:"customer_id"`
	SaleDate      time.Time       `json:"sale_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// LedgerEntry amounts are always stored positive; the effect on the customer
// balance is decided by Type (see BalanceEffect).
type LedgerEntry struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

type LedgerPostRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// BalanceEffect returns the signed delta a posting of the given type applies
// to a customer balance: sale and debt postings increase what the customer
// owes (negative delta), collections reduce it (positive delta).
func BalanceEffect(entryType string, amount decimal.Decimal) decimal.Decimal {
	if entryType == EntryTypeCollection {
		return amount
	}
	return amount.Neg()
}

// CartLine is one (product, quantity, captured unit price) tuple. UnitPrice
// is the sale price at the time the product was first added; later catalog
// price changes do not touch it.
type CartLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartView struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Lines        []CartLine      `json:"lines"`
	Total        decimal.Decimal `json:"total"`
}

// SaleReceipt is what a completed sale hands back to the caller. Warning is
// set when the invoice document could not be rendered; the sale itself is
// already committed at that point.
type SaleReceipt struct {
	Sale         Sale       `json:"sale"`
	CustomerName string     `json:"customer_name"`
	Lines        []CartLine `json:"lines"`
	DocumentPath string     `json:"document_path,omitempty"`
	Warning      string     `json:"warning,omitempty"`
}

type DashboardStats struct {
	TodaySales    decimal.Decimal `json:"today_sales"`
	TotalProducts int             `json:"total_products"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	LowStock      []Product       `json:"low_stock"`
}

type SalesReportRow struct {
	InvoiceNumber string          `json:"invoice_number"`
	SaleDate      time.Time       `json:"sale_date"`
	CustomerName  string          `json:"customer_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type SalesReport struct {
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Rows       []SalesReportRow `json:"rows"`
	Count      int              `json:"count"`
	TotalSales decimal.Decimal  `json:"total_sales"`
}

// CustomerStatement is the export form of a ledger history: entries in
// chronological order plus the closing balance.
type CustomerStatement struct {
	Customer    Customer      `json:"customer"`
	Entries     []LedgerEntry `json:"entries"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type Settings struct {
	CompanyName string `json:"company_name"`
	ExportDir   string `json:"pdf_save_path"`
}
