package storefrontapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

const alreadyClaimedCode = "ALREADY_CLAIMED"

// Voucher is a normalized voucher listing entry.
type Voucher struct {
	ID                 int64
	Code               string
	Title              string
	Discount           string
	Amount             int64
	MinimumSpend       int64
	ExpiresAt          *time.Time
	Scope              string
	StoreID            int64
	StoreName          string
	Claimed            bool
	UsableWithoutClaim bool
}

type voucherListResponse struct {
	Data []wireVoucher `json:"data"`
}

type wireVoucher struct {
	ID           Int    `json:"id"`
	Code         string `json:"kode"`
	Title        string `json:"judul"`
	Discount     string `json:"diskon"`
	Amount       Int    `json:"nominal"`
	MinimumSpend Int    `json:"min_belanja"`
	ExpiresAt    string `json:"berlaku_sampai"`
	Type         string `json:"tipe"`
	StoreID      Int    `json:"toko_id"`
	StoreName    string `json:"nama_toko"`
	Claimed      Flag   `json:"is_claimed"`
	Instant      Flag   `json:"langsung_pakai"`
}

func (w wireVoucher) normalize() (Voucher, error) {
	v := Voucher{
		ID:                 int64(w.ID),
		Code:               strings.TrimSpace(w.Code),
		Title:              w.Title,
		Discount:           w.Discount,
		Amount:             int64(w.Amount),
		MinimumSpend:       int64(w.MinimumSpend),
		Scope:              strings.ToLower(strings.TrimSpace(w.Type)),
		StoreID:            int64(w.StoreID),
		StoreName:          w.StoreName,
		Claimed:            bool(w.Claimed),
		UsableWithoutClaim: bool(w.Instant),
	}
	if raw := strings.TrimSpace(w.ExpiresAt); raw != "" {
		expires, err := parseTimestamp(raw)
		if err != nil {
			return Voucher{}, fmt.Errorf("voucher %d: %w", v.ID, err)
		}
		v.ExpiresAt = &expires
	}
	return v, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// ListVouchers returns the vouchers of one scope ("toko" or "jaja"). storeID narrows
// store vouchers to one store when positive.
func (c *Client) ListVouchers(ctx context.Context, scope string, storeID int64) ([]Voucher, error) {
	query := url.Values{}
	if trimmed := strings.TrimSpace(scope); trimmed != "" {
		query.Set("tipe", trimmed)
	}
	if storeID > 0 {
		query.Set("toko_id", strconv.FormatInt(storeID, 10))
	}
	path := "vouchers"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp voucherListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "list vouchers"); err != nil {
		return nil, err
	}
	out := make([]Voucher, 0, len(resp.Data))
	for _, w := range resp.Data {
		v, err := w.normalize()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode voucher")
		}
		out = append(out, v)
	}
	return out, nil
}

// ClaimVoucher attaches a voucher to the customer's account. A voucher that is
// already claimed yields ErrAlreadyClaimed.
func (c *Client) ClaimVoucher(ctx context.Context, voucherID int64) error {
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("vouchers/%d/claim", voucherID), nil, nil, "claim voucher")
	if err != nil && isAlreadyClaimed(err) {
		return ErrAlreadyClaimed
	}
	return err
}

type applyVoucherResponse struct {
	Data struct {
		Discount Int `json:"potongan"`
	} `json:"data"`
}

// ApplyVoucher activates a voucher code against the customer's current checkout and
// returns the discount granted.
func (c *Client) ApplyVoucher(ctx context.Context, code, scope string) (int64, error) {
	payload := map[string]any{"kode": strings.TrimSpace(code), "tipe": scope}
	var resp applyVoucherResponse
	if err := c.do(ctx, http.MethodPost, "checkout/vouchers", payload, &resp, "apply voucher"); err != nil {
		return 0, err
	}
	return int64(resp.Data.Discount), nil
}

func isAlreadyClaimed(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if strings.EqualFold(statusErr.Code, alreadyClaimedCode) {
		return true
	}
	return statusErr.Status == http.StatusConflict &&
		strings.Contains(strings.ToLower(statusErr.Message), "already claimed")
}
