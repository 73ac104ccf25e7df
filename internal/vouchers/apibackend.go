package vouchers

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/storefrontapi"
)

// APIClient is the subset of the storefront backend client used for vouchers.
type APIClient interface {
	ListVouchers(ctx context.Context, scope string, storeID int64) ([]storefrontapi.Voucher, error)
	ClaimVoucher(ctx context.Context, voucherID int64) error
	ApplyVoucher(ctx context.Context, code, scope string) (int64, error)
}

var wireScopes = map[enums.VoucherScope]string{
	enums.VoucherScopeStore:    "toko",
	enums.VoucherScopePlatform: "jaja",
}

type apiBackend struct {
	client APIClient
}

// NewAPIBackend adapts the storefront backend client to Backend.
func NewAPIBackend(client APIClient) Backend {
	return &apiBackend{client: client}
}

func (b *apiBackend) ListVouchers(ctx context.Context, scope enums.VoucherScope, storeID int64) ([]Voucher, error) {
	raw, err := b.client.ListVouchers(ctx, wireScopes[scope], storeID)
	if err != nil {
		return nil, err
	}
	out := make([]Voucher, 0, len(raw))
	for _, item := range raw {
		parsed, err := enums.ParseVoucherScope(item.Scope)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode voucher scope")
		}
		out = append(out, Voucher{
			ID:                 item.ID,
			Code:               item.Code,
			Title:              item.Title,
			Discount:           item.Discount,
			Amount:             item.Amount,
			MinimumSpend:       item.MinimumSpend,
			ExpiresAt:          item.ExpiresAt,
			Scope:              parsed,
			StoreID:            item.StoreID,
			StoreName:          item.StoreName,
			Claimed:            item.Claimed,
			UsableWithoutClaim: item.UsableWithoutClaim,
		})
	}
	return out, nil
}

func (b *apiBackend) ClaimVoucher(ctx context.Context, voucherID int64) error {
	err := b.client.ClaimVoucher(ctx, voucherID)
	if errors.Is(err, storefrontapi.ErrAlreadyClaimed) {
		return ErrAlreadyClaimed
	}
	return err
}

func (b *apiBackend) ApplyVoucher(ctx context.Context, code string, scope enums.VoucherScope) (int64, error) {
	return b.client.ApplyVoucher(ctx, code, wireScopes[scope])
}
