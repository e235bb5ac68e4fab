package policies

import (
	"context"
	"io"
)

// ReceiptStorage stores uploaded payment receipts and returns a durable reference.
type ReceiptStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ReceiptRemover is implemented by storages that can drop an object whose
// reference never made it into a committed booking.
type ReceiptRemover interface {
	Remove(ctx context.Context, ref string) error
}
