package contract

import "context"

// ProcessedEventCache is a fast path in front of the database dedupe check.
// A miss never means "not processed"; callers fall back to the database.
type ProcessedEventCache interface {
	IsProcessed(ctx context.Context, gatewayPaymentId, event string) (bool, error)
	MarkProcessed(ctx context.Context, gatewayPaymentId, event string) error
}
