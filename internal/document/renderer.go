// Package document renders invoices, customer statements and sales reports as
// plain-text files on disk. Rendering failures never block the operation that
// triggered them; callers surface them as warnings.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stoktakip/internal/domain"
)

type Renderer interface {
	RenderInvoice(settings domain.Settings, receipt domain.SaleReceipt) (string, error)
	RenderStatement(settings domain.Settings, statement domain.CustomerStatement) (string, error)
	RenderSalesReport(settings domain.Settings, report domain.SalesReport) (string, error)
}

// TextRenderer writes fixed-width text documents under the configured export
// directory, creating it as needed.
type TextRenderer struct{}

func (TextRenderer) RenderInvoice(settings domain.Settings, receipt domain.SaleReceipt) (string, error) {
	var b strings.Builder
	writeHeader(&b, settings.CompanyName, "INVOICE")
	fmt.Fprintf(&b, "Invoice : %s\n", receipt.Sale.InvoiceNumber)
	fmt.Fprintf(&b, "Date    : %s\n", receipt.Sale.SaleDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Customer: %s\n\n", receipt.CustomerName)

	fmt.Fprintf(&b, "%-30s %5s %12s %12s\n", "Product", "Qty", "Unit", "Total")
	b.WriteString(strings.Repeat("-", 62) + "\n")
	for _, line := range receipt.Lines {
		fmt.Fprintf(&b, "%-30s %5d %12s %12s\n",
			clip(line.ProductName, 30), line.Quantity,
			line.UnitPrice.StringFixed(2), line.LineTotal().StringFixed(2))
	}
	b.WriteString(strings.Repeat("-", 62) + "\n")
	fmt.Fprintf(&b, "%49s %12s\n", "TOTAL", receipt.Sale.TotalAmount.StringFixed(2))

	name := fmt.Sprintf("invoice_%s.txt", receipt.Sale.InvoiceNumber)
	return write(settings.ExportDir, name, b.String())
}

func (TextRenderer) RenderStatement(settings domain.Settings, statement domain.CustomerStatement) (string, error) {
	var b strings.Builder
	writeHeader(&b, settings.CompanyName, "CUSTOMER STATEMENT")
	fmt.Fprintf(&b, "Customer : %s\n", statement.Customer.Name)
	fmt.Fprintf(&b, "Generated: %s\n\n", statement.GeneratedAt.Format("2006-01-02 15:04"))

	fmt.Fprintf(&b, "%-12s %-12s %12s  %s\n", "Date", "Type", "Amount", "Description")
	b.WriteString(strings.Repeat("-", 62) + "\n")
	for _, entry := range statement.Entries {
		fmt.Fprintf(&b, "%-12s %-12s %12s  %s\n",
			entry.Date.Format("2006-01-02"), entry.Type,
			domain.BalanceEffect(entry.Type, entry.Amount).StringFixed(2), entry.Description)
	}
	b.WriteString(strings.Repeat("-", 62) + "\n")
	fmt.Fprintf(&b, "%-25s %12s\n", "CLOSING BALANCE", statement.Customer.Balance.StringFixed(2))

	name := fmt.Sprintf("statement_%d_%s.txt", statement.Customer.ID, statement.GeneratedAt.Format("20060102"))
	return write(settings.ExportDir, name, b.String())
}

func (TextRenderer) RenderSalesReport(settings domain.Settings, report domain.SalesReport) (string, error) {
	var b strings.Builder
	writeHeader(&b, settings.CompanyName, "SALES REPORT")
	fmt.Fprintf(&b, "Period: %s to %s\n\n", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))

	fmt.Fprintf(&b, "%-22s %-12s %-20s %12s\n", "Invoice", "Date", "Customer", "Total")
	b.WriteString(strings.Repeat("-", 68) + "\n")
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "%-22s %-12s %-20s %12s\n",
			row.InvoiceNumber, row.SaleDate.Format("2006-01-02"),
			clip(row.CustomerName, 20), row.TotalAmount.StringFixed(2))
	}
	b.WriteString(strings.Repeat("-", 68) + "\n")
	fmt.Fprintf(&b, "Sales: %d    Total: %s\n", report.Count, report.TotalSales.StringFixed(2))

	name := fmt.Sprintf("sales_report_%s_%s.txt", report.From.Format("20060102"), report.To.Format("20060102"))
	return write(settings.ExportDir, name, b.String())
}

func writeHeader(b *strings.Builder, company string, title string) {
	fmt.Fprintf(b, "%s\n%s\n%s\n\n", company, title, strings.Repeat("=", 62))
}

// clip shortens by runes, not bytes, so multi-byte names stay valid UTF-8.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "~"
}

func write(dir string, name string, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
