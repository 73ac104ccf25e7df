package cart

import (
	"context"

	"github.com/angelmondragon/storefront-core/pkg/storefrontapi"
)

// APIClient is the subset of the storefront backend client used for carts.
type APIClient interface {
	FetchCart(ctx context.Context) ([]storefrontapi.CartLine, error)
	SetSelected(ctx context.Context, lineID int64, selected bool) error
	SetQuantity(ctx context.Context, lineID int64, qty int) error
	DeleteLine(ctx context.Context, lineID int64) error
	ClearCart(ctx context.Context) error
}

type apiBackend struct {
	client APIClient
}

// NewAPIBackend adapts the storefront backend client to Backend.
func NewAPIBackend(client APIClient) Backend {
	return &apiBackend{client: client}
}

func (b *apiBackend) FetchCart(ctx context.Context) (Lines, error) {
	raw, err := b.client.FetchCart(ctx)
	if err != nil {
		return nil, err
	}
	lines := make(Lines, 0, len(raw))
	for _, item := range raw {
		lines = append(lines, lineFromAPI(item))
	}
	return lines, nil
}

func (b *apiBackend) SetSelected(ctx context.Context, id LineID, selected bool) error {
	return b.client.SetSelected(ctx, int64(id), selected)
}

func (b *apiBackend) SetQuantity(ctx context.Context, id LineID, qty int) error {
	return b.client.SetQuantity(ctx, int64(id), qty)
}

func (b *apiBackend) DeleteLine(ctx context.Context, id LineID) error {
	return b.client.DeleteLine(ctx, int64(id))
}

func (b *apiBackend) ClearCart(ctx context.Context) error {
	return b.client.ClearCart(ctx)
}

func lineFromAPI(item storefrontapi.CartLine) Line {
	line := Line{
		ID:        LineID(item.ID),
		StoreID:   item.StoreID,
		StoreName: item.StoreName,
		Cached: CachedPricing{
			Price:           item.Price,
			DiscountPercent: item.DiscountPercent,
		},
		Quantity: item.Quantity,
		Selected: item.Selected,
	}
	if item.Product != nil {
		line.Product = FullProduct{
			ID:              item.Product.ID,
			Name:            item.Product.Name,
			BasePrice:       item.Product.Price,
			DiscountPercent: item.Product.DiscountPercent,
			Stock:           item.Product.Stock,
			ImageURL:        item.Product.ImageURL,
		}
	} else {
		line.Product = ProductReference{ID: item.ProductID, Name: item.ProductName}
	}
	if item.Variant != nil {
		line.Variant = &Variant{
			ID:    item.Variant.ID,
			Name:  item.Variant.Name,
			Price: item.Variant.Price,
			Stock: item.Variant.Stock,
		}
	}
	return line
}
