package cart

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const defaultToggleConcurrency = 4

const (
	OperationRefresh     = "refresh"
	OperationToggleOne   = "toggle_one"
	OperationToggleAll   = "toggle_all"
	OperationSetQuantity = "set_quantity"
	OperationRemove      = "remove"
	OperationClear       = "clear"

	OutcomeOK         = "ok"
	OutcomeNoop       = "noop"
	OutcomeBusy       = "busy"
	OutcomeRolledBack = "rolled_back"
	OutcomePartial    = "partial"
	OutcomeFailed     = "failed"
)

// Options wires a Store to its collaborators.
type Options struct {
	Backend           Backend
	Locks             LineLocker
	Counts            CountPublisher
	Recorder          MutationRecorder
	Logger            *logger.Logger
	MaxQuantity       int
	ToggleConcurrency int
}

// Service opens per-customer cart stores.
type Service interface {
	Open(ctx context.Context, customerID string) (*Store, error)
}

type service struct {
	opts Options
}

// NewService builds a cart service backed by the provided stack.
func NewService(opts Options) (Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &service{opts: opts}, nil
}

// Open loads the customer's authoritative cart into a new Store.
func (s *service) Open(ctx context.Context, customerID string) (*Store, error) {
	store, err := NewStore(customerID, s.opts)
	if err != nil {
		return nil, err
	}
	if err := store.Refresh(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (o *Options) validate() error {
	if o.Backend == nil {
		return fmt.Errorf("cart backend required")
	}
	if o.Locks == nil {
		o.Locks = NewMemoryLineLocker()
	}
	if o.MaxQuantity < 1 {
		o.MaxQuantity = DefaultMaxQuantity
	}
	if o.ToggleConcurrency < 1 {
		o.ToggleConcurrency = defaultToggleConcurrency
	}
	return nil
}

// MutationResult is the cart state after a mutation, with any adjustments made.
type MutationResult struct {
	Lines     Lines
	Warnings  Warnings
	Refetched bool
}

// Store holds one customer's cart snapshot. Mutations are applied locally first,
// sent to the backend, and compensated when the backend rejects them. A line can
// only have one mutation in flight; mutations on different lines run concurrently.
type Store struct {
	customerID string
	opts       Options

	mu     sync.RWMutex
	lines  Lines
	loaded bool
}

// NewStore builds an empty, unloaded store for customerID.
func NewStore(customerID string, opts Options) (*Store, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Store{customerID: customerID, opts: opts}, nil
}

// CustomerID returns the owner of the cart.
func (s *Store) CustomerID() string {
	return s.customerID
}

// Lines returns a copy of the current snapshot.
func (s *Store) Lines() Lines {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines.Clone()
}

// Count returns the number of lines in the cart.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Totals computes the selection totals over the current snapshot.
func (s *Store) Totals(shipping, discount, tax int64) Totals {
	return ComputeTotals(s.Lines(), shipping, discount, tax)
}

// Groups partitions the current snapshot by store.
func (s *Store) Groups() []StoreGroup {
	return GroupByStore(s.Lines())
}

// Refresh replaces the snapshot with the backend's authoritative cart.
func (s *Store) Refresh(ctx context.Context) error {
	start := time.Now()
	if err := s.refetch(ctx); err != nil {
		s.observe(OperationRefresh, OutcomeFailed, start)
		return err
	}
	s.observe(OperationRefresh, OutcomeOK, start)
	return nil
}

// ToggleOne flips the selection of one line.
func (s *Store) ToggleOne(ctx context.Context, id LineID) (MutationResult, error) {
	start := time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return MutationResult{}, err
	}
	if _, ok := s.find(id); !ok {
		return MutationResult{}, lineNotFound(id)
	}

	unlock, err := s.lockLines(ctx, []LineID{id})
	if err != nil {
		s.observeLockFailure(OperationToggleOne, err, start)
		return MutationResult{}, err
	}
	defer unlock()

	line, ok := s.find(id)
	if !ok {
		return MutationResult{}, lineNotFound(id)
	}
	target := !line.Selected

	prior := s.applyLocal([]LineID{id}, func(lines Lines) Lines {
		out, _ := ToggleOne(lines, id)
		return out
	})

	if err := s.opts.Backend.SetSelected(ctx, id, target); err != nil {
		return s.compensate(ctx, OperationToggleOne, prior, Warnings{}, err, start)
	}

	s.publishCount(ctx)
	s.observe(OperationToggleOne, OutcomeOK, start)
	return s.result(Warnings{}, false), nil
}

// ToggleAll selects every line unless all are selected, in which case it deselects
// every line. Partial backend failures are reconciled by refetching the cart.
func (s *Store) ToggleAll(ctx context.Context) (MutationResult, error) {
	start := time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return MutationResult{}, err
	}

	ids := s.Lines().IDs()
	if len(ids) == 0 {
		s.observe(OperationToggleAll, OutcomeNoop, start)
		return s.result(Warnings{}, false), nil
	}

	unlock, err := s.lockLines(ctx, ids)
	if err != nil {
		s.observeLockFailure(OperationToggleAll, err, start)
		return MutationResult{}, err
	}
	defer unlock()

	current := s.Lines()
	target := !AllSelected(current)
	changed := SelectionOf(current).Diff(SelectionOf(SetAllSelected(current, target)), current)

	prior := s.applyLocal(current.IDs(), func(lines Lines) Lines {
		return SetAllSelected(lines, target)
	})

	failures := make([]error, len(changed))
	var g errgroup.Group
	g.SetLimit(s.opts.ToggleConcurrency)
	for i, id := range changed {
		g.Go(func() error {
			if err := s.opts.Backend.SetSelected(ctx, id, target); err != nil {
				failures[i] = fmt.Errorf("line %d: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	combined := multierr.Combine(failures...)
	failed := len(multierr.Errors(combined))
	switch {
	case failed == 0:
		s.publishCount(ctx)
		s.observe(OperationToggleAll, OutcomeOK, start)
		return s.result(Warnings{}, false), nil
	case failed == len(changed):
		return s.compensate(ctx, OperationToggleAll, prior, Warnings{}, combined, start)
	}

	warnings := appendWarning(Warnings{}, enums.CartLineWarningTypePartialFailure, 0,
		fmt.Sprintf("%d of %d lines could not be updated", failed, len(changed)))
	s.logWarn(ctx, "cart.toggle_all.partial_failure", combined)

	if err := s.refetch(ctx); err != nil {
		s.rollback(prior)
		s.observe(OperationToggleAll, OutcomeFailed, start)
		return s.result(warnings, false), pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(combined, err), "reconcile cart after partial failure")
	}
	warnings = appendWarning(warnings, enums.CartLineWarningTypeRefetched, 0, "cart reloaded from server")
	s.observe(OperationToggleAll, OutcomePartial, start)
	return s.result(warnings, true), nil
}

// SetQuantity changes the quantity of a line. Requests below one are refused
// locally; requests above the available stock are clamped to it.
func (s *Store) SetQuantity(ctx context.Context, id LineID, requested int) (MutationResult, error) {
	start := time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return MutationResult{}, err
	}
	line, ok := s.find(id)
	if !ok {
		return MutationResult{}, lineNotFound(id)
	}
	if warnings, refused := BelowMinimum(id, requested); refused {
		s.observe(OperationSetQuantity, OutcomeNoop, start)
		return s.result(warnings, false), nil
	}

	qty, warnings := ClampQuantity(requested, line, s.opts.MaxQuantity)

	unlock, err := s.lockLines(ctx, []LineID{id})
	if err != nil {
		s.observeLockFailure(OperationSetQuantity, err, start)
		return MutationResult{}, err
	}
	defer unlock()

	line, ok = s.find(id)
	if !ok {
		return MutationResult{}, lineNotFound(id)
	}
	if line.Quantity == qty {
		s.observe(OperationSetQuantity, OutcomeNoop, start)
		return s.result(warnings, false), nil
	}

	prior := s.applyLocal([]LineID{id}, func(lines Lines) Lines {
		out := lines.Clone()
		if idx := out.Index(id); idx >= 0 {
			out[idx].Quantity = qty
		}
		return out
	})

	if err := s.opts.Backend.SetQuantity(ctx, id, qty); err != nil {
		return s.compensate(ctx, OperationSetQuantity, prior, warnings, err, start)
	}

	s.publishCount(ctx)
	s.observe(OperationSetQuantity, OutcomeOK, start)
	return s.result(warnings, false), nil
}

// Remove deletes one line from the cart.
func (s *Store) Remove(ctx context.Context, id LineID) (MutationResult, error) {
	start := time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return MutationResult{}, err
	}
	if _, ok := s.find(id); !ok {
		return MutationResult{}, lineNotFound(id)
	}

	unlock, err := s.lockLines(ctx, []LineID{id})
	if err != nil {
		s.observeLockFailure(OperationRemove, err, start)
		return MutationResult{}, err
	}
	defer unlock()

	prior := s.applyLocal([]LineID{id}, func(lines Lines) Lines {
		return withoutLines(lines, map[LineID]struct{}{id: {}})
	})

	if err := s.opts.Backend.DeleteLine(ctx, id); err != nil {
		return s.compensate(ctx, OperationRemove, prior, Warnings{}, err, start)
	}

	s.publishCount(ctx)
	s.observe(OperationRemove, OutcomeOK, start)
	return s.result(Warnings{}, false), nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) (MutationResult, error) {
	start := time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return MutationResult{}, err
	}
	ids := s.Lines().IDs()
	if len(ids) == 0 {
		s.observe(OperationClear, OutcomeNoop, start)
		return s.result(Warnings{}, false), nil
	}

	unlock, err := s.lockLines(ctx, ids)
	if err != nil {
		s.observeLockFailure(OperationClear, err, start)
		return MutationResult{}, err
	}
	defer unlock()

	prior := s.applyLocal(ids, func(lines Lines) Lines {
		drop := make(map[LineID]struct{}, len(ids))
		for _, id := range ids {
			drop[id] = struct{}{}
		}
		return withoutLines(lines, drop)
	})

	if err := s.opts.Backend.ClearCart(ctx); err != nil {
		return s.compensate(ctx, OperationClear, prior, Warnings{}, err, start)
	}

	s.publishCount(ctx)
	s.observe(OperationClear, OutcomeOK, start)
	return s.result(Warnings{}, false), nil
}

type priorLine struct {
	index   int
	line    Line
	removed bool
}

// applyLocal records the current state of ids, then replaces the snapshot with fn's output.
func (s *Store) applyLocal(ids []LineID, fn func(Lines) Lines) map[LineID]priorLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior := make(map[LineID]priorLine, len(ids))
	for _, id := range ids {
		if idx := s.lines.Index(id); idx >= 0 {
			prior[id] = priorLine{index: idx, line: s.lines[idx].clone()}
		}
	}
	s.lines = fn(s.lines)
	for id, entry := range prior {
		if s.lines.Index(id) < 0 {
			entry.removed = true
			prior[id] = entry
		}
	}
	return prior
}

// rollback restores the recorded lines in place and re-inserts the ones the mutation
// removed at their previous position. It reports false when a line the mutation kept
// has disappeared meanwhile, in which case the local state can no longer be trusted.
func (s *Store) rollback(prior map[LineID]priorLine) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]priorLine, 0, len(prior))
	for _, entry := range prior {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	consistent := true
	out := s.lines.Clone()
	for _, entry := range entries {
		if idx := out.Index(entry.line.ID); idx >= 0 {
			out[idx] = entry.line.clone()
			continue
		}
		if !entry.removed {
			consistent = false
			continue
		}
		pos := entry.index
		if pos > len(out) {
			pos = len(out)
		}
		out = append(out, Line{})
		copy(out[pos+1:], out[pos:])
		out[pos] = entry.line.clone()
	}
	s.lines = out
	return consistent
}

// compensate undoes an optimistic change after the backend rejected it, falling back
// to a refetch when the rollback cannot be applied cleanly.
func (s *Store) compensate(ctx context.Context, operation string, prior map[LineID]priorLine, warnings Warnings, cause error, start time.Time) (MutationResult, error) {
	refetched := false
	warnings = appendWarning(warnings, enums.CartLineWarningTypeRolledBack, singleLineID(prior), "change reverted, the server rejected it")
	if !s.rollback(prior) {
		if err := s.refetch(ctx); err != nil {
			s.logWarn(ctx, "cart."+operation+".refetch_failed", err)
		} else {
			refetched = true
			warnings = appendWarning(warnings, enums.CartLineWarningTypeRefetched, 0, "cart reloaded from server")
		}
	}
	s.logWarn(ctx, "cart."+operation+".rolled_back", cause)
	s.observe(operation, OutcomeRolledBack, start)
	return s.result(warnings, refetched), dependencyError(cause, operation)
}

func (s *Store) refetch(ctx context.Context) error {
	lines, err := s.opts.Backend.FetchCart(ctx)
	if err != nil {
		return dependencyError(err, "fetch cart")
	}
	s.mu.Lock()
	s.lines = lines.Clone()
	s.loaded = true
	s.mu.Unlock()
	s.publishCount(ctx)
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.refetch(ctx)
}

func (s *Store) find(id LineID) (Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.lines.Find(id)
	if !ok {
		return Line{}, false
	}
	return line.clone(), true
}

func (s *Store) lockLines(ctx context.Context, ids []LineID) (func(), error) {
	acquired := make(map[LineID]string, len(ids))
	release := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for id, token := range acquired {
			if err := s.opts.Locks.Unlock(releaseCtx, s.customerID, id, token); err != nil {
				s.logWarn(releaseCtx, "cart.line.unlock_failed", err)
			}
		}
	}
	for _, id := range ids {
		token, ok, err := s.opts.Locks.TryLock(ctx, s.customerID, id)
		if err != nil {
			release()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart line")
		}
		if !ok {
			release()
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart line is busy").WithDetails(map[string]any{"line_id": id})
		}
		acquired[id] = token
	}
	return release, nil
}

func (s *Store) result(warnings Warnings, refetched bool) MutationResult {
	return MutationResult{
		Lines:     s.Lines(),
		Warnings:  warnings,
		Refetched: refetched,
	}
}

func (s *Store) publishCount(ctx context.Context) {
	if s.opts.Counts == nil {
		return
	}
	s.opts.Counts.Publish(ctx, s.customerID, s.Count())
}

func (s *Store) observe(operation, outcome string, start time.Time) {
	if s.opts.Recorder == nil {
		return
	}
	s.opts.Recorder.ObserveMutation(operation, outcome, time.Since(start))
}

func (s *Store) observeLockFailure(operation string, err error, start time.Time) {
	outcome := OutcomeFailed
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		outcome = OutcomeBusy
	}
	s.observe(operation, outcome, start)
}

func (s *Store) logWarn(ctx context.Context, msg string, err error) {
	if s.opts.Logger == nil {
		return
	}
	fields := map[string]any{"customer_id": s.customerID}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.opts.Logger.Warn(s.opts.Logger.WithFields(ctx, fields), msg)
}

func withoutLines(lines Lines, drop map[LineID]struct{}) Lines {
	out := make(Lines, 0, len(lines))
	for _, line := range lines {
		if _, ok := drop[line.ID]; ok {
			continue
		}
		out = append(out, line.clone())
	}
	return out
}

func singleLineID(prior map[LineID]priorLine) LineID {
	if len(prior) != 1 {
		return 0
	}
	for id := range prior {
		return id
	}
	return 0
}

func lineNotFound(id LineID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").WithDetails(map[string]any{"line_id": id})
}

// dependencyError keeps typed backend errors and wraps anything else.
func dependencyError(err error, step string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
