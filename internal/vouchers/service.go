package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/money"
)

// ErrAlreadyClaimed is returned by a Backend when the voucher is already attached to
// the customer's account.
var ErrAlreadyClaimed = errors.New("voucher already claimed")

// Backend is the marketplace API that owns vouchers.
type Backend interface {
	ListVouchers(ctx context.Context, scope enums.VoucherScope, storeID int64) ([]Voucher, error)
	ClaimVoucher(ctx context.Context, voucherID int64) error
	ApplyVoucher(ctx context.Context, code string, scope enums.VoucherScope) (int64, error)
}

// Listing is a voucher annotated with its eligibility for the current selection.
type Listing struct {
	Voucher  Voucher
	Eligible bool
	Reason   string
}

// ClaimResult reports the outcome of a claim. AlreadyClaimed is informational only.
type ClaimResult struct {
	VoucherID      int64 `json:"voucher_id"`
	AlreadyClaimed bool  `json:"already_claimed"`
}

// Service exposes voucher listing, claiming and slot management.
type Service interface {
	List(ctx context.Context, scope enums.VoucherScope, storeID int64, lines cart.Lines) ([]Listing, error)
	Claim(ctx context.Context, voucherID int64) (ClaimResult, error)
	Apply(ctx context.Context, customerID string, name enums.VoucherSlot, code string, lines cart.Lines) (Slot, error)
	Remove(ctx context.Context, customerID string, name enums.VoucherSlot) (Slot, error)
	Slots(ctx context.Context, customerID string) ([]Slot, error)
	Review(ctx context.Context, customerID string, lines cart.Lines) ([]SlotStatus, error)
}

// Options wires the voucher service.
type Options struct {
	Backend Backend
	Slots   SlotStore
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	backend Backend
	slots   SlotStore
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the voucher service.
func NewService(opts Options) (Service, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("voucher backend required")
	}
	if opts.Slots == nil {
		opts.Slots = NewMemorySlotStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		backend: opts.Backend,
		slots:   opts.Slots,
		logg:    opts.Logger,
		now:     opts.Now,
	}, nil
}

func (s *service) List(ctx context.Context, scope enums.VoucherScope, storeID int64, lines cart.Lines) ([]Listing, error) {
	if !scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid voucher scope").
			WithDetails(map[string]any{"scope": scope})
	}
	vouchers, err := s.backend.ListVouchers(ctx, scope, storeID)
	if err != nil {
		return nil, dependencyError(err, "list vouchers")
	}

	now := s.now()
	selected := lines.SelectedStoreIDs()
	out := make([]Listing, 0, len(vouchers))
	for _, v := range vouchers {
		listing := Listing{Voucher: v, Eligible: true}
		if err := Check(v, selected, now); err != nil {
			listing.Eligible = false
			listing.Reason = pkgerrors.As(err).Message()
		}
		out = append(out, listing)
	}
	return out, nil
}

func (s *service) Claim(ctx context.Context, voucherID int64) (ClaimResult, error) {
	if voucherID <= 0 {
		return ClaimResult{}, pkgerrors.New(pkgerrors.CodeValidation, "voucher id is required")
	}
	result := ClaimResult{VoucherID: voucherID}
	if err := s.backend.ClaimVoucher(ctx, voucherID); err != nil {
		if !errors.Is(err, ErrAlreadyClaimed) {
			return ClaimResult{}, dependencyError(err, "claim voucher")
		}
		result.AlreadyClaimed = true
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "voucher_id", voucherID), "voucher.claim.already_claimed")
		}
	}
	return result, nil
}

// Apply resolves code with a read-only listing, then runs every eligibility rule
// locally. Only an eligible, usable voucher reaches the backend's apply endpoint.
func (s *service) Apply(ctx context.Context, customerID string, name enums.VoucherSlot, code string, lines cart.Lines) (Slot, error) {
	if !name.IsValid() {
		return Slot{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid voucher slot").
			WithDetails(map[string]any{"slot": name})
	}
	if strings.TrimSpace(code) == "" {
		return Slot{}, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}

	slot, err := s.slots.Load(ctx, customerID, name)
	if err != nil {
		return Slot{}, err
	}
	if err := slot.EnterCode(code); err != nil {
		return slot, err
	}
	if err := s.slots.Save(ctx, customerID, slot); err != nil {
		return slot, err
	}

	v, err := s.findByCode(ctx, name.Scope(), slot.Code, lines)
	if err != nil {
		return slot, err
	}

	now := s.now()
	if err := Check(v, lines.SelectedStoreIDs(), now); err != nil {
		return slot, err
	}
	if !v.Usable() {
		return slot, pkgerrors.New(pkgerrors.CodeIneligible, "claim the voucher before using it").
			WithDetails(map[string]any{"voucher_id": v.ID})
	}
	if err := checkMinimumSpend(v, lines); err != nil {
		return slot, err
	}

	discount, err := s.backend.ApplyVoucher(ctx, v.Code, name.Scope())
	if err != nil {
		return slot, dependencyError(err, "apply voucher")
	}
	if err := slot.MarkApplied(v, discount, now); err != nil {
		return slot, err
	}
	if err := s.slots.Save(ctx, customerID, slot); err != nil {
		return slot, err
	}
	return slot, nil
}

func (s *service) Remove(ctx context.Context, customerID string, name enums.VoucherSlot) (Slot, error) {
	if !name.IsValid() {
		return Slot{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid voucher slot").
			WithDetails(map[string]any{"slot": name})
	}
	slot, err := s.slots.Load(ctx, customerID, name)
	if err != nil {
		return Slot{}, err
	}
	slot.Remove()
	if err := s.slots.Save(ctx, customerID, slot); err != nil {
		return slot, err
	}
	return slot, nil
}

func (s *service) Slots(ctx context.Context, customerID string) ([]Slot, error) {
	names := []enums.VoucherSlot{enums.VoucherSlotStore, enums.VoucherSlotPlatform}
	out := make([]Slot, 0, len(names))
	for _, name := range names {
		slot, err := s.slots.Load(ctx, customerID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// Review loads the customer's slots and re-checks applied vouchers against the
// selected lines.
func (s *service) Review(ctx context.Context, customerID string, lines cart.Lines) ([]SlotStatus, error) {
	slots, err := s.Slots(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return EvaluateSlots(slots, lines.SelectedStoreIDs(), s.now()), nil
}

func (s *service) findByCode(ctx context.Context, scope enums.VoucherScope, code string, lines cart.Lines) (Voucher, error) {
	var storeID int64
	if scope == enums.VoucherScopeStore {
		if ids := lines.SelectedStoreIDs(); len(ids) == 1 {
			storeID = ids[0]
		}
	}
	vouchers, err := s.backend.ListVouchers(ctx, scope, storeID)
	if err != nil {
		return Voucher{}, dependencyError(err, "list vouchers")
	}
	for _, v := range vouchers {
		if strings.EqualFold(v.Code, code) {
			return v, nil
		}
	}
	return Voucher{}, pkgerrors.New(pkgerrors.CodeNotFound, "voucher code not found").
		WithDetails(map[string]any{"code": code})
}

// checkMinimumSpend compares against the selected subtotal, narrowed to the
// voucher's store for store-bound vouchers.
func checkMinimumSpend(v Voucher, lines cart.Lines) error {
	if v.MinimumSpend <= 0 {
		return nil
	}
	var subtotal int64
	for _, line := range lines.Selected() {
		if v.Scope == enums.VoucherScopeStore && v.StoreID != 0 && line.StoreID != v.StoreID {
			continue
		}
		subtotal += cart.LineSubtotal(line)
	}
	if subtotal >= v.MinimumSpend {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeIneligible, fmt.Sprintf("minimum spend of %s not reached", money.Format(v.MinimumSpend))).
		WithDetails(map[string]any{
			"voucher_id":    v.ID,
			"minimum_spend": v.MinimumSpend,
			"subtotal":      subtotal,
		})
}

func dependencyError(err error, step string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
