// Package service implements the business operations on top of the store:
// catalog and customer management, the sale session, the ledger, reporting
// and settings. All input validation lives here so every entry point gets the
// same rules regardless of what the transport checked.
package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stoktakip/internal/cache"
	"stoktakip/internal/cart"
	"stoktakip/internal/document"
	"stoktakip/internal/domain"
	"stoktakip/internal/invoice"
	"stoktakip/internal/money"
	"stoktakip/internal/settings"
	"stoktakip/internal/store"
)

const productListTTL = 30 * time.Second

// Session is the mutable state of the single till: the customer the next sale
// will be booked to and the cart being assembled. It always points at a valid
// customer; a fresh session belongs to the walk-in customer.
type Session struct {
	CustomerID   int64
	CustomerName string
	Cart         *cart.Cart
}

type Service struct {
	repo     store.Repository
	cache    cache.ProductListCache
	settings *settings.FileStore
	renderer document.Renderer
	now      func() time.Time

	mu      sync.Mutex
	session Session
}

func New(repo store.Repository, listCache cache.ProductListCache, settingsStore *settings.FileStore, renderer document.Renderer) *Service {
	if listCache == nil {
		listCache = cache.NoopProductListCache{}
	}
	return &Service{
		repo:     repo,
		cache:    listCache,
		settings: settingsStore,
		renderer: renderer,
		now:      time.Now,
		session: Session{
			CustomerID:   domain.WalkInCustomerID,
			CustomerName: "Walk-in Customer",
			Cart:         cart.New(),
		},
	}
}

// ---- catalog ----

func (s *Service) ListProducts(ctx context.Context, filter string) ([]domain.Product, error) {
	key := strings.ToLower(strings.TrimSpace(filter))
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: product cache read failed: %v", err)
	} else if ok {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, products, productListTTL); err != nil {
		log.Printf("[service] WARN: product cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// LookupProducts matches the query against product ids and names and returns
// every candidate. Disambiguation is the caller's problem.
func (s *Service) LookupProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.StockQuantity < 0 || req.LowStockThreshold < 0 {
		return nil, store.ErrInvalidInput
	}

	product := domain.Product{
		Name:              req.Name,
		StockQuantity:     req.StockQuantity,
		PurchasePrice:     money.Parse(req.PurchasePrice),
		SalePrice:         money.Parse(req.SalePrice),
		LowStockThreshold: req.LowStockThreshold,
	}
	if product.SalePrice.IsNegative() || product.PurchasePrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.invalidateProductCache(ctx)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.PurchasePrice != nil {
		product.PurchasePrice = money.Parse(*req.PurchasePrice)
	}
	if req.SalePrice != nil {
		product.SalePrice = money.Parse(*req.SalePrice)
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}

	if product.Name == "" || product.StockQuantity < 0 || product.LowStockThreshold < 0 ||
		product.SalePrice.IsNegative() || product.PurchasePrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return nil, err
	}
	s.invalidateProductCache(ctx)
	return saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateProductCache(ctx)
	return nil
}

func (s *Service) invalidateProductCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: product cache invalidation failed: %v", err)
	}
}

// ---- customers ----

func (s *Service) ListCustomers(ctx context.Context, filter string, includeWalkIn bool) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, filter, includeWalkIn)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if req.Type == "" {
		req.Type = domain.CustomerTypeRetail
	}
	if req.Type != domain.CustomerTypeRetail && req.Type != domain.CustomerTypeWholesale {
		return nil, store.ErrInvalidInput
	}

	return s.repo.CreateCustomer(ctx, domain.Customer{Name: req.Name, Type: req.Type})
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		customer.Type = *req.Type
	}
	if customer.Name == "" ||
		(customer.Type != domain.CustomerTypeRetail && customer.Type != domain.CustomerTypeWholesale) {
		return nil, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateCustomer(ctx, *customer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.session.CustomerID == saved.ID {
		s.session.CustomerName = saved.Name
	}
	s.mu.Unlock()
	return saved, nil
}

// DeleteCustomer removes the customer together with their sales and ledger
// history in one atomic operation. If the session was pointing at the deleted
// customer it falls back to the walk-in customer.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCustomerCascade(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.session.CustomerID == id {
		s.session.CustomerID = domain.WalkInCustomerID
		s.session.CustomerName = "Walk-in Customer"
	}
	s.mu.Unlock()
	return nil
}

// ---- session and cart ----

func (s *Service) SetSessionCustomer(ctx context.Context, id int64) (domain.CartView, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.CustomerID = customer.ID
	s.session.CustomerName = customer.Name
	return s.cartViewLocked(), nil
}

func (s *Service) AddToCart(ctx context.Context, productID int64) (domain.CartView, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Cart.Add(*product); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(), nil
}

// AddToCartByQuery resolves the query to exactly one product and adds it.
// Zero matches is ErrNotFound; more than one is ErrAmbiguousProduct so the
// caller can present the candidates instead of guessing.
func (s *Service) AddToCartByQuery(ctx context.Context, query string) (domain.CartView, error) {
	candidates, err := s.repo.SearchProducts(ctx, query)
	if err != nil {
		return domain.CartView{}, err
	}
	switch len(candidates) {
	case 0:
		return domain.CartView{}, store.ErrNotFound
	case 1:
		return s.AddToCart(ctx, candidates[0].ID)
	default:
		return domain.CartView{}, store.ErrAmbiguousProduct
	}
}

func (s *Service) RemoveFromCart(_ context.Context, productID int64) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Cart.Remove(productID)
	return s.cartViewLocked()
}

func (s *Service) ClearCart(_ context.Context) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Cart.Clear()
	return s.cartViewLocked()
}

func (s *Service) CartView(_ context.Context) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartViewLocked()
}

func (s *Service) cartViewLocked() domain.CartView {
	return domain.CartView{
		CustomerID:   s.session.CustomerID,
		CustomerName: s.session.CustomerName,
		Lines:        s.session.Cart.Lines(),
		Total:        s.session.Cart.Total(),
	}
}

// CompleteSale commits the cart as a sale. The store performs the whole
// commit atomically; only after it succeeds is the cart cleared and the
// session reset to the walk-in customer. A failed invoice render does not
// undo the committed sale, it comes back as a warning on the receipt.
func (s *Service) CompleteSale(ctx context.Context) (*domain.SaleReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Cart.Empty() {
		return nil, store.ErrEmptyCart
	}

	now := s.now()
	lines := s.session.Cart.Lines()
	sale := domain.Sale{
		InvoiceNumber: invoice.Number(now),
		CustomerID:    s.session.CustomerID,
		SaleDate:      now,
		TotalAmount:   s.session.Cart.Total(),
	}

	committed, err := s.repo.CreateSale(ctx, sale, lines)
	if err != nil {
		return nil, err
	}
	// The commit just changed stock levels; cached listings are stale now.
	s.invalidateProductCache(ctx)

	receipt := domain.SaleReceipt{
		Sale:         *committed,
		CustomerName: s.session.CustomerName,
		Lines:        lines,
	}

	cfg, err := s.settings.Load()
	if err != nil {
		cfg = settings.Defaults()
	}
	if path, err := s.renderer.RenderInvoice(cfg, receipt); err != nil {
		log.Printf("[service] WARN: invoice render failed invoice=%s: %v", sale.InvoiceNumber, err)
		receipt.Warning = "sale committed but invoice document could not be written"
	} else {
		receipt.DocumentPath = path
	}

	s.session.Cart.Clear()
	s.session.CustomerID = domain.WalkInCustomerID
	s.session.CustomerName = "Walk-in Customer"
	return &receipt, nil
}

// ---- ledger ----

func (s *Service) PostLedger(ctx context.Context, customerID int64, req domain.LedgerPostRequest) (*domain.Customer, error) {
	if customerID == domain.WalkInCustomerID {
		return nil, store.ErrForbiddenCustomer
	}
	if req.Type != domain.EntryTypeDebt && req.Type != domain.EntryTypeCollection {
		return nil, store.ErrInvalidInput
	}
	amount := money.Parse(req.Amount)
	if !amount.IsPositive() {
		return nil, store.ErrInvalidAmount
	}

	return s.repo.PostLedgerEntry(ctx, domain.LedgerEntry{
		CustomerID:  customerID,
		Type:        req.Type,
		Amount:      amount,
		Date:        s.now(),
		Description: strings.TrimSpace(req.Description),
	})
}

// LedgerHistory returns the customer's entries most recent first, the order
// they are displayed in. Exports use the chronological order from Statement.
func (s *Service) LedgerHistory(ctx context.Context, customerID int64) ([]domain.LedgerEntry, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	entries, err := s.repo.LedgerHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *Service) Statement(ctx context.Context, customerID int64) (*domain.CustomerStatement, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.LedgerHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &domain.CustomerStatement{
		Customer:    *customer,
		Entries:     entries,
		GeneratedAt: s.now(),
	}, nil
}

// ExportStatement writes the statement document and returns its path. A
// render failure is reported to the caller here because the export is the
// whole point of the operation.
func (s *Service) ExportStatement(ctx context.Context, customerID int64) (string, error) {
	statement, err := s.Statement(ctx, customerID)
	if err != nil {
		return "", err
	}
	cfg, err := s.settings.Load()
	if err != nil {
		cfg = settings.Defaults()
	}
	return s.renderer.RenderStatement(cfg, *statement)
}

// ---- reporting ----

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx, s.now())
}

func (s *Service) SalesReport(ctx context.Context, fromRaw string, toRaw string) (domain.SalesReport, error) {
	from, to, err := parseDateRange(fromRaw, toRaw)
	if err != nil {
		return domain.SalesReport{}, err
	}
	return s.repo.GetSalesReport(ctx, from, to)
}

func (s *Service) ExportSalesReport(ctx context.Context, fromRaw string, toRaw string) (string, error) {
	report, err := s.SalesReport(ctx, fromRaw, toRaw)
	if err != nil {
		return "", err
	}
	cfg, err := s.settings.Load()
	if err != nil {
		cfg = settings.Defaults()
	}
	return s.renderer.RenderSalesReport(cfg, report)
}

func parseDateRange(fromRaw string, toRaw string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", strings.TrimSpace(fromRaw))
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidDateRange
	}
	to, err := time.Parse("2006-01-02", strings.TrimSpace(toRaw))
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidDateRange
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, store.ErrInvalidDateRange
	}
	return from, to, nil
}

// ---- settings ----

func (s *Service) Settings(_ context.Context) (domain.Settings, error) {
	return s.settings.Load()
}

func (s *Service) UpdateSettings(_ context.Context, patch domain.Settings) (domain.Settings, error) {
	return s.settings.Update(patch)
}

// Balance is a convenience wrapper used by the statement header and the
// customer detail view.
func (s *Service) Balance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return customer.Balance, nil
}
