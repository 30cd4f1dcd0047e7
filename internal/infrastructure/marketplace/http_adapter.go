package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/shared"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Profile holds the per-marketplace endpoint layout. All supported
// platforms are reached through their seller-API gateways, which share the
// same logical operations behind different hosts and paths.
type Profile struct {
	Code       marketplace.Code
	BaseURL    string
	OrdersPath string // GET, paginated order feed
	OrderPath  string // GET, single order; external ID appended
	StockPath  string // POST, stock update
	Timeout    time.Duration
}

// Validate checks the profile
func (p *Profile) Validate() error {
	if !p.Code.IsValid() {
		return marketplace.ErrInvalidMarketplace
	}
	if p.BaseURL == "" {
		return fmt.Errorf("marketplace %s: base URL is required", p.Code)
	}
	return nil
}

// DefaultProfiles returns the production endpoint profiles for every
// supported marketplace
func DefaultProfiles() []Profile {
	return []Profile{
		{Code: marketplace.CodeShopee, BaseURL: "https://partner.shopeemobile.com/api/v2", OrdersPath: "/order/get_order_list", OrderPath: "/order/get_order_detail", StockPath: "/product/update_stock"},
		{Code: marketplace.CodeLazada, BaseURL: "https://api.lazada.com/rest", OrdersPath: "/orders/get", OrderPath: "/order/get", StockPath: "/product/stock/sellable/update"},
		{Code: marketplace.CodeTikTok, BaseURL: "https://open-api.tiktokglobalshop.com/api", OrdersPath: "/orders/search", OrderPath: "/orders/detail", StockPath: "/products/stocks"},
		{Code: marketplace.CodeAmazon, BaseURL: "https://sellingpartnerapi-na.amazon.com", OrdersPath: "/orders/v0/orders", OrderPath: "/orders/v0/orders", StockPath: "/listings/2021-08-01/items"},
		{Code: marketplace.CodeEbay, BaseURL: "https://api.ebay.com/sell", OrdersPath: "/fulfillment/v1/order", OrderPath: "/fulfillment/v1/order", StockPath: "/inventory/v1/inventory_item"},
	}
}

// credentials is the decoded form of an account's opaque credential blob
type credentials struct {
	AccessToken string `json:"access_token"`
	ShopID      string `json:"shop_id"`
}

// HTTPAdapter implements the Adapter contract over a marketplace's seller
// API. One instance serves every account on its marketplace; per-account
// credentials travel in the account's opaque blob.
type HTTPAdapter struct {
	profile    Profile
	httpClient *http.Client
}

// NewHTTPAdapter creates an adapter for one marketplace profile
func NewHTTPAdapter(profile Profile) (*HTTPAdapter, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if profile.Timeout == 0 {
		profile.Timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		profile:    profile,
		httpClient: &http.Client{Timeout: profile.Timeout},
	}, nil
}

// Marketplace returns the code this adapter handles
func (a *HTTPAdapter) Marketplace() marketplace.Code {
	return a.profile.Code
}

// wireOrder is the gateway's order representation
type wireOrder struct {
	OrderID         string          `json:"order_id"`
	Status          string          `json:"status"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []wireOrderItem `json:"items"`
}

type wireOrderItem struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type wireOrderPage struct {
	Orders  []wireOrder `json:"orders"`
	Total   int64       `json:"total"`
	HasMore bool        `json:"has_more"`
}

// GetOrders fetches one page of the account's order feed
func (a *HTTPAdapter) GetOrders(ctx context.Context, account *marketplace.Account, req marketplace.GetOrdersRequest) (*marketplace.OrderPage, error) {
	creds, err := a.decodeCredentials(account)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s?shop_id=%s&page=%d&page_size=%d",
		a.profile.BaseURL, a.profile.OrdersPath, creds.ShopID, req.Page, req.PageSize)
	if !req.DateFrom.IsZero() {
		url += "&date_from=" + strconv.FormatInt(req.DateFrom.Unix(), 10)
	}
	if !req.DateTo.IsZero() {
		url += "&date_to=" + strconv.FormatInt(req.DateTo.Unix(), 10)
	}
	if req.Status != "" {
		url += "&status=" + req.Status
	}

	var page wireOrderPage
	if err := a.doJSON(ctx, http.MethodGet, url, creds, nil, &page, "get_orders"); err != nil {
		return nil, err
	}

	orders := make([]marketplace.RawOrder, len(page.Orders))
	for i := range page.Orders {
		orders[i] = a.toRawOrder(&page.Orders[i])
	}
	return &marketplace.OrderPage{Orders: orders, Total: page.Total, HasMore: page.HasMore}, nil
}

// GetOrder fetches a single raw order by its external ID
func (a *HTTPAdapter) GetOrder(ctx context.Context, account *marketplace.Account, externalOrderID string) (*marketplace.RawOrder, error) {
	creds, err := a.decodeCredentials(account)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s/%s?shop_id=%s", a.profile.BaseURL, a.profile.OrderPath, externalOrderID, creds.ShopID)
	var wire wireOrder
	if err := a.doJSON(ctx, http.MethodGet, url, creds, nil, &wire, "get_order"); err != nil {
		return nil, err
	}
	raw := a.toRawOrder(&wire)
	return &raw, nil
}

// UpdateStock pushes a stock level for an external product/variant
func (a *HTTPAdapter) UpdateStock(ctx context.Context, account *marketplace.Account, externalProductID, externalVariantID string, quantity int) (*marketplace.StockUpdateResult, error) {
	creds, err := a.decodeCredentials(account)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"shop_id":    creds.ShopID,
		"product_id": externalProductID,
		"quantity":   quantity,
	}
	if externalVariantID != "" {
		payload["variant_id"] = externalVariantID
	}

	url := a.profile.BaseURL + a.profile.StockPath
	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := a.doJSON(ctx, http.MethodPost, url, creds, payload, &response, "update_stock"); err != nil {
		return nil, err
	}

	return &marketplace.StockUpdateResult{
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		Quantity:          quantity,
		Success:           response.Success,
		ErrorMessage:      response.Message,
	}, nil
}

func (a *HTTPAdapter) toRawOrder(wire *wireOrder) marketplace.RawOrder {
	rawData, _ := json.Marshal(wire)
	items := make([]marketplace.RawOrderItem, len(wire.Items))
	for i, item := range wire.Items {
		itemData, _ := json.Marshal(item)
		items[i] = marketplace.RawOrderItem{
			ExternalItemID:    item.ItemID,
			ExternalProductID: item.ProductID,
			SKU:               item.SKU,
			Name:              item.Name,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			TotalPrice:        item.Total,
			RawData:           string(itemData),
		}
	}
	return marketplace.RawOrder{
		ExternalOrderID: wire.OrderID,
		Status:          wire.Status,
		CustomerName:    wire.CustomerName,
		CustomerEmail:   wire.CustomerEmail,
		CustomerPhone:   wire.CustomerPhone,
		ShippingAddress: wire.ShippingAddress,
		TotalAmount:     wire.TotalAmount,
		ShippingFee:     wire.ShippingFee,
		Currency:        wire.Currency,
		Items:           items,
		OrderedAt:       wire.CreatedAt,
		RawData:         string(rawData),
	}
}

func (a *HTTPAdapter) decodeCredentials(account *marketplace.Account) (*credentials, error) {
	var creds credentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, shared.NewAdapterError(a.profile.Code.String(), "credentials", 0, "invalid credential blob", err)
	}
	if creds.AccessToken == "" {
		return nil, shared.NewAdapterError(a.profile.Code.String(), "credentials", 0, "missing access token", nil)
	}
	return &creds, nil
}

// doJSON performs one signed request and decodes the JSON response.
// Non-2xx responses become AdapterErrors carrying the platform's message.
func (a *HTTPAdapter) doJSON(ctx context.Context, method, url string, creds *credentials, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return shared.NewAdapterError(a.profile.Code.String(), operation, 0, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.NewAdapterError(a.profile.Code.String(), operation, resp.StatusCode, "reading response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return shared.NewAdapterError(a.profile.Code.String(), operation, resp.StatusCode, string(data), nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return shared.NewAdapterError(a.profile.Code.String(), operation, resp.StatusCode, "invalid response body", err)
	}
	return nil
}

var _ marketplace.Adapter = (*HTTPAdapter)(nil)
