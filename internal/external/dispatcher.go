package external

import (
	"context"
	"fmt"
	"log/slog"

	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

// DeliveryError reports a provider failure during dispatch. For batches,
// ChunkIndex is the zero-based chunk that failed; earlier chunks were sent
// and are not rolled back.
type DeliveryError struct {
	ChunkIndex int
	Recipients []string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed for chunk %d (%d recipients): %v", e.ChunkIndex, len(e.Recipients), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher sends rendered messages through the provider bound to an
// organization's credential.
type Dispatcher struct {
	cache     *ClientCache
	batchSize int
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. batchSize is clamped to
// [1, PostmarkMaxBatch].
func NewDispatcher(cache *ClientCache, batchSize int, logger *slog.Logger) *Dispatcher {
	if batchSize <= 0 || batchSize > PostmarkMaxBatch {
		batchSize = PostmarkMaxBatch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cache: cache, batchSize: batchSize, logger: logger}
}

func (d *Dispatcher) provider(token types.SecretString) (EmailProvider, error) {
	if token.Empty() {
		return nil, types.NewAppError(types.ErrCodePreconditionEmailSettings, "email provider token is not configured", nil)
	}
	p, err := d.cache.Get(token.Unmask())
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build email provider", err)
	}
	return p, nil
}

// Send transmits a single message.
func (d *Dispatcher) Send(ctx context.Context, token types.SecretString, from types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	p, err := d.provider(token)
	if err != nil {
		return types.Receipt{}, err
	}
	receipt, err := p.Send(ctx, from, msg)
	if err != nil {
		d.logger.ErrorContext(ctx, "email send failed",
			"provider", p.Name(),
			"kind", msg.Kind,
			"to", email.RedactEmail(msg.To),
			"error", err,
		)
		return receipt, &DeliveryError{ChunkIndex: 0, Recipients: []string{msg.To}, Err: err}
	}
	return receipt, nil
}

// SendBatch sends msgs in order, in chunks of at most the configured batch
// size. On a chunk failure it returns the receipts of the chunks already sent
// together with a *DeliveryError; later chunks are not attempted.
func (d *Dispatcher) SendBatch(ctx context.Context, token types.SecretString, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	p, err := d.provider(token)
	if err != nil {
		return nil, err
	}

	receipts := make([]types.Receipt, 0, len(msgs))
	for i, chunk := range Chunk(msgs, d.batchSize) {
		got, err := p.SendBatch(ctx, from, chunk)
		if err != nil {
			recipients := make([]string, len(chunk))
			for j, m := range chunk {
				recipients[j] = m.To
			}
			d.logger.ErrorContext(ctx, "email batch chunk failed",
				"provider", p.Name(),
				"chunk_index", i,
				"chunk_size", len(chunk),
				"first_recipient", email.RedactEmail(recipients[0]),
				"error", err,
			)
			return receipts, &DeliveryError{ChunkIndex: i, Recipients: recipients, Err: err}
		}
		for _, r := range got {
			if !r.Accepted() {
				d.logger.WarnContext(ctx, "provider rejected message",
					"provider", p.Name(),
					"to", email.RedactEmail(r.To),
					"error_code", r.ErrorCode,
					"message", r.Message,
				)
			}
		}
		receipts = append(receipts, got...)
	}
	return receipts, nil
}

// VerifyCredential checks token against its provider.
func (d *Dispatcher) VerifyCredential(ctx context.Context, token types.SecretString) (types.CredentialStatus, error) {
	if token.Empty() {
		return types.CredentialStatus{Valid: false, Detail: "no provider token configured"}, nil
	}
	p, err := d.provider(token)
	if err != nil {
		return types.CredentialStatus{}, err
	}
	return p.VerifyCredential(ctx)
}

// Chunk splits items into consecutive slices of at most size elements,
// preserving order. The returned slices share the input's backing array.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
