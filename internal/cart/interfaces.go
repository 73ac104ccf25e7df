package cart

import (
	"context"
	"time"
)

// Backend is the marketplace API that owns cart durability.
type Backend interface {
	FetchCart(ctx context.Context) (Lines, error)
	SetSelected(ctx context.Context, id LineID, selected bool) error
	SetQuantity(ctx context.Context, id LineID, qty int) error
	DeleteLine(ctx context.Context, id LineID) error
	ClearCart(ctx context.Context) error
}

// LineLocker serializes mutations of the same cart line.
type LineLocker interface {
	// TryLock returns false without blocking when the line is already being mutated.
	// The token identifies this holder and must be handed back to Unlock.
	TryLock(ctx context.Context, customerID string, id LineID) (token string, ok bool, err error)
	// Unlock releases the line only while token still holds it; a lock that expired
	// and was taken by another holder is left alone.
	Unlock(ctx context.Context, customerID string, id LineID, token string) error
}

// CountPublisher receives the number of lines after every cart change.
type CountPublisher interface {
	Publish(ctx context.Context, customerID string, count int)
}

// MutationRecorder observes mutation outcomes.
type MutationRecorder interface {
	ObserveMutation(operation, outcome string, duration time.Duration)
}
