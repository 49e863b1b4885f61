package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SupplierOrder is sent to the supplier ordering gateway when auto-restock
// fires for a depleted branch_stock row.
type SupplierOrder struct {
	ProductSKU string `json:"product_sku"`
	BranchCode string `json:"branch_code"`
	Quantity   int    `json:"quantity"`
	OrderID    string `json:"order_id"`
}

// SupplierOrderResponse is returned by the gateway.
type SupplierOrderResponse struct {
	OrderRef string `json:"order_ref"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// SupplierClient is an HTTP client for the external supplier ordering
// gateway. Keeping supplier communication out-of-process isolates gateway
// failures from the request path — restock orders flow through the worker
// pool with the circuit breaker in front.
type SupplierClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSupplierClient(baseURL string) *SupplierClient {
	return &SupplierClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PlaceOrder sends a purchase order and returns the gateway confirmation.
func (c *SupplierClient) PlaceOrder(ctx context.Context, order SupplierOrder) (*SupplierOrderResponse, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("supplier: marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("supplier: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supplier: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supplier: gateway returned %d", resp.StatusCode)
	}

	var result SupplierOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("supplier: decode response: %w", err)
	}
	return &result, nil
}
