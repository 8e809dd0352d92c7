package document

import (
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"stoktakip/internal/domain"
)

func testSettings(t *testing.T) domain.Settings {
	t.Helper()
	return domain.Settings{CompanyName: "Acme Retail", ExportDir: t.TempDir()}
}

func TestRenderInvoiceWritesDeterministicFilename(t *testing.T) {
	settings := testSettings(t)
	receipt := domain.SaleReceipt{
		Sale: domain.Sale{
			InvoiceNumber: "INV-20260901-12345",
			SaleDate:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			TotalAmount:   decimal.RequireFromString("199.80"),
		},
		CustomerName: "Walk-in Customer",
		Lines: []domain.CartLine{
			{ProductName: "Wireless Mouse", Quantity: 2, UnitPrice: decimal.RequireFromString("99.90")},
		},
	}

	path, err := TextRenderer{}.RenderInvoice(settings, receipt)
	if err != nil {
		t.Fatalf("render invoice: %v", err)
	}
	if !strings.HasSuffix(path, "invoice_INV-20260901-12345.txt") {
		t.Fatalf("unexpected path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(raw)
	for _, want := range []string{"Acme Retail", "INV-20260901-12345", "Wireless Mouse", "199.80"} {
		if !strings.Contains(content, want) {
			t.Fatalf("document missing %q:\n%s", want, content)
		}
	}
}

func TestRenderStatementShowsSignedAmounts(t *testing.T) {
	settings := testSettings(t)
	statement := domain.CustomerStatement{
		Customer:    domain.Customer{ID: 7, Name: "K", Balance: decimal.RequireFromString("-250")},
		GeneratedAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Entries: []domain.LedgerEntry{
			{Type: domain.EntryTypeDebt, Amount: decimal.RequireFromString("200"), Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
			{Type: domain.EntryTypeCollection, Amount: decimal.RequireFromString("100"), Date: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		},
	}

	path, err := TextRenderer{}.RenderStatement(settings, statement)
	if err != nil {
		t.Fatalf("render statement: %v", err)
	}
	raw, _ := os.ReadFile(path)
	content := string(raw)
	if !strings.Contains(content, "-200.00") || !strings.Contains(content, "100.00") {
		t.Fatalf("signed amounts missing:\n%s", content)
	}
	if !strings.Contains(content, "-250.00") {
		t.Fatalf("closing balance missing:\n%s", content)
	}
}

func TestClipShortensByRunes(t *testing.T) {
	name := strings.Repeat("Ş", 40)
	got := clip(name, 30)
	if !utf8.ValidString(got) {
		t.Fatalf("clipped string is not valid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 30 {
		t.Fatalf("expected 30 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "~") {
		t.Fatalf("expected truncation marker, got %q", got)
	}

	if short := clip("Gözlük", 30); short != "Gözlük" {
		t.Fatalf("short string mangled: %q", short)
	}
}

func TestRenderSalesReportTotals(t *testing.T) {
	settings := testSettings(t)
	report := domain.SalesReport{
		From:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Count: 1,
		Rows: []domain.SalesReportRow{
			{InvoiceNumber: "INV-20260815-55555", SaleDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), CustomerName: "K", TotalAmount: decimal.RequireFromString("150")},
		},
		TotalSales: decimal.RequireFromString("150"),
	}

	path, err := TextRenderer{}.RenderSalesReport(settings, report)
	if err != nil {
		t.Fatalf("render report: %v", err)
	}
	if !strings.HasSuffix(path, "sales_report_20260801_20260831.txt") {
		t.Fatalf("unexpected path %q", path)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "Sales: 1    Total: 150.00") {
		t.Fatalf("totals line missing:\n%s", raw)
	}
}
