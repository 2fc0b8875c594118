package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myomesh/internal/types"
)

// recordingProvider records batches and can fail a chosen batch call.
type recordingProvider struct {
	mu        sync.Mutex
	batches   [][]types.OutboundMessage
	sent      []types.OutboundMessage
	failBatch int // 1-based; 0 never fails
	sendErr   error
	status    types.CredentialStatus
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, _ types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	if p.sendErr != nil {
		return types.Receipt{}, p.sendErr
	}
	return types.Receipt{To: msg.To, MessageID: "id-" + msg.To}, nil
}

func (p *recordingProvider) SendBatch(_ context.Context, _ types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, msgs)
	if p.failBatch == len(p.batches) {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "chunk failed", nil)
	}
	out := make([]types.Receipt, len(msgs))
	for i, m := range msgs {
		out[i] = types.Receipt{To: m.To, MessageID: "id-" + m.To}
	}
	return out, nil
}

func (p *recordingProvider) VerifyCredential(context.Context) (types.CredentialStatus, error) {
	return p.status, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(p EmailProvider, batchSize int) (*Dispatcher, *atomic.Int32) {
	var builds atomic.Int32
	cache := NewClientCache(func(string) (EmailProvider, error) {
		builds.Add(1)
		return p, nil
	})
	return NewDispatcher(cache, batchSize, discardLogger()), &builds
}

func messages(n int) []types.OutboundMessage {
	out := make([]types.OutboundMessage, n)
	for i := range out {
		out[i] = types.OutboundMessage{To: fmt.Sprintf("r%d@c.test", i)}
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 500, nil},
		{1, 500, []int{1}},
		{500, 500, []int{500}},
		{501, 500, []int{500, 1}},
		{1250, 500, []int{500, 500, 250}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}
			chunks := Chunk(items, tt.size)
			var sizes []int
			var flat []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.want, sizes)
			if tt.n > 0 {
				assert.Equal(t, items, flat, "order must be preserved")
			}
		})
	}
}

func TestDispatcher_SendBatch_ChunksInOrder(t *testing.T) {
	p := &recordingProvider{}
	d, _ := newTestDispatcher(p, 500)

	msgs := messages(1001)
	receipts, err := d.SendBatch(context.Background(), "tok", testSender, msgs)
	require.NoError(t, err)

	require.Len(t, p.batches, 3)
	assert.Len(t, p.batches[0], 500)
	assert.Len(t, p.batches[1], 500)
	assert.Len(t, p.batches[2], 1)
	require.Len(t, receipts, 1001)
	for i, r := range receipts {
		assert.Equal(t, msgs[i].To, r.To)
	}
}

func TestDispatcher_SendBatch_ChunkFailure(t *testing.T) {
	p := &recordingProvider{failBatch: 2}
	d, _ := newTestDispatcher(p, 2)

	receipts, err := d.SendBatch(context.Background(), "tok", testSender, messages(5))

	var delivery *DeliveryError
	require.True(t, errors.As(err, &delivery), "expected DeliveryError, got %v", err)
	assert.Equal(t, 1, delivery.ChunkIndex)
	assert.Equal(t, []string{"r2@c.test", "r3@c.test"}, delivery.Recipients)
	assert.Len(t, receipts, 2, "receipts of the first chunk are returned")
	assert.Len(t, p.batches, 2, "later chunks are not attempted")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}

func TestDispatcher_SendBatch_Empty(t *testing.T) {
	p := &recordingProvider{}
	d, builds := newTestDispatcher(p, 500)

	receipts, err := d.SendBatch(context.Background(), "tok", testSender, nil)
	require.NoError(t, err)
	assert.Empty(t, receipts)
	assert.Zero(t, builds.Load())
}

func TestDispatcher_Send_MissingToken(t *testing.T) {
	d, _ := newTestDispatcher(&recordingProvider{}, 500)

	_, err := d.Send(context.Background(), "", testSender, types.OutboundMessage{To: "a@c.test"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodePreconditionEmailSettings, appErr.Code)
}

func TestDispatcher_Send_WrapsProviderError(t *testing.T) {
	p := &recordingProvider{sendErr: types.NewAppError(types.ErrCodeEmailBlocked, "inactive", nil)}
	d, _ := newTestDispatcher(p, 500)

	_, err := d.Send(context.Background(), "tok", testSender, types.OutboundMessage{To: "a@c.test"})
	var delivery *DeliveryError
	require.True(t, errors.As(err, &delivery))
	assert.Equal(t, []string{"a@c.test"}, delivery.Recipients)
}

func TestDispatcher_VerifyCredential(t *testing.T) {
	p := &recordingProvider{status: types.CredentialStatus{Valid: true, ServerName: "srv"}}
	d, _ := newTestDispatcher(p, 500)

	status, err := d.VerifyCredential(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, status.Valid)

	status, err = d.VerifyCredential(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, status.Valid)
}

func TestNewDispatcher_ClampsBatchSize(t *testing.T) {
	d := NewDispatcher(NewClientCache(nil), 10_000, nil)
	assert.Equal(t, PostmarkMaxBatch, d.batchSize)
}

func TestClientCache_Get_MemoizesPerToken(t *testing.T) {
	var builds atomic.Int32
	cache := NewClientCache(func(token string) (EmailProvider, error) {
		builds.Add(1)
		return &recordingProvider{status: types.CredentialStatus{ServerName: token}}, nil
	})

	var wg sync.WaitGroup
	results := make([]EmailProvider, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := cache.Get("tok-a")
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}

	other, err := cache.Get("tok-b")
	require.NoError(t, err)
	assert.NotSame(t, results[0], other)
	assert.Equal(t, 2, cache.Len())
}

func TestClientCache_Get_FactoryErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := NewClientCache(func(string) (EmailProvider, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return &recordingProvider{}, nil
	})

	_, err := cache.Get("tok")
	require.Error(t, err)
	_, err = cache.Get("tok")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}
