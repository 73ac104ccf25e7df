package storefrontapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CartLine is one normalized cart entry. Product is nil when the backend only
// returned the product id.
type CartLine struct {
	ID              int64
	StoreID         int64
	StoreName       string
	ProductID       int64
	ProductName     string
	Product         *Product
	Variant         *Variant
	Price           int64
	DiscountPercent float64
	Quantity        int
	Selected        bool
}

// Product is the embedded product snapshot.
type Product struct {
	ID              int64
	Name            string
	Price           int64
	DiscountPercent float64
	Stock           *int
	ImageURL        string
}

// Variant is the chosen product option.
type Variant struct {
	ID    int64
	Name  string
	Price *int64
	Stock *int
}

type cartResponse struct {
	Data []wireCartLine `json:"data"`
}

type wireCartLine struct {
	ID       Int          `json:"id_cart"`
	Store    *wireStore   `json:"toko"`
	Product  wireProduct  `json:"produk"`
	Name     string       `json:"nama_produk"`
	Variant  *wireVariant `json:"variasi"`
	Price    Int          `json:"harga"`
	Discount Float        `json:"diskon"`
	Quantity Int          `json:"qty"`
	Selected Flag         `json:"is_selected"`
}

type wireStore struct {
	ID   Int    `json:"id"`
	Name string `json:"nama"`
}

type wireVariant struct {
	ID    Int    `json:"id"`
	Name  string `json:"nama"`
	Price *Int   `json:"harga"`
	Stock *Int   `json:"stok"`
}

type wireProductSnapshot struct {
	ID       Int    `json:"id"`
	Name     string `json:"nama"`
	Price    Int    `json:"harga"`
	Discount Float  `json:"diskon"`
	Stock    *Int   `json:"stok"`
	Image    string `json:"gambar"`
}

// wireProduct is either a bare id or an embedded product object.
type wireProduct struct {
	ID       int64
	Snapshot *wireProductSnapshot
}

func (p *wireProduct) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		*p = wireProduct{}
		return nil
	}
	if trimmed[0] == '{' {
		var snapshot wireProductSnapshot
		if err := json.Unmarshal(trimmed, &snapshot); err != nil {
			return fmt.Errorf("decode produk: %w", err)
		}
		*p = wireProduct{ID: int64(snapshot.ID), Snapshot: &snapshot}
		return nil
	}
	var id Int
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return fmt.Errorf("decode produk: %w", err)
	}
	*p = wireProduct{ID: int64(id)}
	return nil
}

func (w wireCartLine) normalize() CartLine {
	line := CartLine{
		ID:              int64(w.ID),
		ProductID:       w.Product.ID,
		ProductName:     w.Name,
		Price:           int64(w.Price),
		DiscountPercent: float64(w.Discount),
		Quantity:        int(w.Quantity),
		Selected:        bool(w.Selected),
	}
	if w.Store != nil {
		line.StoreID = int64(w.Store.ID)
		line.StoreName = w.Store.Name
	}
	if snap := w.Product.Snapshot; snap != nil {
		line.ProductName = snap.Name
		line.Product = &Product{
			ID:              int64(snap.ID),
			Name:            snap.Name,
			Price:           int64(snap.Price),
			DiscountPercent: float64(snap.Discount),
			Stock:           intPtr(snap.Stock),
			ImageURL:        snap.Image,
		}
	}
	if w.Variant != nil {
		line.Variant = &Variant{
			ID:    int64(w.Variant.ID),
			Name:  w.Variant.Name,
			Price: int64Ptr(w.Variant.Price),
			Stock: intPtr(w.Variant.Stock),
		}
	}
	return line
}

// FetchCart returns the customer's authoritative cart.
func (c *Client) FetchCart(ctx context.Context) ([]CartLine, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, "cart", nil, &resp, "fetch cart"); err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(resp.Data))
	for _, w := range resp.Data {
		lines = append(lines, w.normalize())
	}
	return lines, nil
}

// SetSelected updates the selection flag of one line.
func (c *Client) SetSelected(ctx context.Context, lineID int64, selected bool) error {
	payload := map[string]any{"is_selected": selected}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("cart/%d/selected", lineID), payload, nil, "set selected")
}

// SetQuantity updates the quantity of one line. Quantities below one are raised to one.
func (c *Client) SetQuantity(ctx context.Context, lineID int64, qty int) error {
	if qty < 1 {
		qty = 1
	}
	payload := map[string]any{"qty": qty}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("cart/%d/qty", lineID), payload, nil, "set quantity")
}

// DeleteLine removes one line.
func (c *Client) DeleteLine(ctx context.Context, lineID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("cart/%d", lineID), nil, nil, "delete cart line")
}

// ClearCart removes every line.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "cart", nil, nil, "clear cart")
}

func intPtr(v *Int) *int {
	if v == nil {
		return nil
	}
	out := int(*v)
	return &out
}

func int64Ptr(v *Int) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}
