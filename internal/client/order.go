package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/pkg/httpclient"
)

const orderServiceName = "order"

// OrderClient asks the order service about purchase history.
type OrderClient struct {
	baseURL string
	doer    httpclient.Doer
}

// NewOrderClient creates a client for the order service at baseURL.
func NewOrderClient(baseURL string, doer httpclient.Doer) *OrderClient {
	return &OrderClient{baseURL: baseURL, doer: doer}
}

// HasReceivedProduct reports whether the user bought the product and the
// order was delivered.
func (c *OrderClient) HasReceivedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	q := url.Values{}
	q.Set("user_id", userID.String())
	q.Set("product_id", productID.String())
	endpoint := joinURL(c.baseURL, "/api/v1/orders/purchases?"+q.Encode())

	var out struct {
		Received bool `json:"received"`
	}
	if err := httpclient.GetJSON(ctx, c.doer, endpoint, orderServiceName, &out); err != nil {
		return false, err
	}
	return out.Received, nil
}

// IsVariantReferenced reports whether a non-cancelled order line points at
// the variant.
func (c *OrderClient) IsVariantReferenced(ctx context.Context, variantID uuid.UUID) (bool, error) {
	endpoint := joinURL(c.baseURL, fmt.Sprintf("/api/v1/orders/variant-references/%s", variantID))

	var out struct {
		Referenced bool `json:"referenced"`
	}
	if err := httpclient.GetJSON(ctx, c.doer, endpoint, orderServiceName, &out); err != nil {
		return false, err
	}
	return out.Referenced, nil
}
