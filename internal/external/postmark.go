package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"myomesh/internal/types"
)

const (
	postmarkAPIBase = "https://api.postmarkapp.com"

	// PostmarkMaxBatch is the /email/batch per-request limit.
	PostmarkMaxBatch = 500

	// postmarkInactiveRecipient is the API error code for suppressed addresses.
	postmarkInactiveRecipient = 406
)

// PostmarkClientConfig configures a PostmarkClient.
type PostmarkClientConfig struct {
	ServerToken   string
	BaseURL       string // defaults to postmarkAPIBase
	MessageStream string // defaults to "outbound"
	Logger        *slog.Logger
}

// PostmarkClient implements EmailProvider over the Postmark server API.
type PostmarkClient struct {
	base    *BaseClient
	token   string
	baseURL string
	stream  string
	logger  *slog.Logger
}

// NewPostmarkClient creates a PostmarkClient with its own breaker.
func NewPostmarkClient(httpClient *http.Client, policy RetryPolicy, cfg PostmarkClientConfig) *PostmarkClient {
	base := NewBaseClient(httpClient, "postmark", policy, "MyoMesh-Notifications/1.0")
	return NewPostmarkClientWithBase(base, cfg)
}

// NewPostmarkClientWithBase creates a PostmarkClient over a caller-configured
// BaseClient.
func NewPostmarkClientWithBase(base *BaseClient, cfg PostmarkClientConfig) *PostmarkClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = postmarkAPIBase
	}
	stream := cfg.MessageStream
	if stream == "" {
		stream = "outbound"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PostmarkClient{
		base:    base,
		token:   cfg.ServerToken,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		stream:  stream,
		logger:  logger,
	}
}

func (p *PostmarkClient) Name() string { return string(types.ProviderPostmark) }

type postmarkMessage struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
	Tag           string `json:"Tag,omitempty"`
}

type postmarkSendResult struct {
	To          string    `json:"To"`
	SubmittedAt time.Time `json:"SubmittedAt"`
	MessageID   string    `json:"MessageID"`
	ErrorCode   int       `json:"ErrorCode"`
	Message     string    `json:"Message"`
}

func (r postmarkSendResult) receipt() types.Receipt {
	return types.Receipt{
		To:          r.To,
		MessageID:   r.MessageID,
		SubmittedAt: r.SubmittedAt,
		ErrorCode:   r.ErrorCode,
		Message:     r.Message,
	}
}

type postmarkServer struct {
	Name  string `json:"Name"`
	Color string `json:"Color"`
}

type postmarkAPIError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (p *PostmarkClient) toMessage(from types.Sender, msg types.OutboundMessage) postmarkMessage {
	return postmarkMessage{
		From:          from.Address(),
		To:            msg.To,
		Subject:       msg.Subject,
		HtmlBody:      msg.HTMLBody,
		TextBody:      msg.TextBody,
		MessageStream: p.stream,
		Tag:           string(msg.Kind),
	}
}

// Send posts to /email.
func (p *PostmarkClient) Send(ctx context.Context, from types.Sender, msg types.OutboundMessage) (types.Receipt, error) {
	var result postmarkSendResult
	if err := p.call(ctx, http.MethodPost, "/email", p.toMessage(from, msg), &result, "Send"); err != nil {
		return types.Receipt{}, err
	}
	if result.ErrorCode != 0 {
		return result.receipt(), mapPostmarkError("Send", http.StatusUnprocessableEntity, postmarkAPIError{ErrorCode: result.ErrorCode, Message: result.Message})
	}
	return result.receipt(), nil
}

// SendBatch posts up to PostmarkMaxBatch messages to /email/batch.
func (p *PostmarkClient) SendBatch(ctx context.Context, from types.Sender, msgs []types.OutboundMessage) ([]types.Receipt, error) {
	if len(msgs) > PostmarkMaxBatch {
		return nil, types.NewAppError(types.ErrCodeValidationBatchSize,
			fmt.Sprintf("batch of %d exceeds the %d message limit", len(msgs), PostmarkMaxBatch), nil)
	}
	payload := make([]postmarkMessage, len(msgs))
	for i, m := range msgs {
		payload[i] = p.toMessage(from, m)
	}

	var results []postmarkSendResult
	if err := p.call(ctx, http.MethodPost, "/email/batch", payload, &results, "SendBatch"); err != nil {
		return nil, err
	}
	receipts := make([]types.Receipt, len(results))
	for i, r := range results {
		receipts[i] = r.receipt()
	}
	return receipts, nil
}

// VerifyCredential fetches /server. Any failure is reported as an invalid
// credential with the provider's message as detail.
func (p *PostmarkClient) VerifyCredential(ctx context.Context) (types.CredentialStatus, error) {
	var server postmarkServer
	if err := p.call(ctx, http.MethodGet, "/server", nil, &server, "VerifyCredential"); err != nil {
		return types.CredentialStatus{Valid: false, Detail: err.Error()}, nil
	}
	return types.CredentialStatus{Valid: true, ServerName: server.Name, Color: server.Color}, nil
}

func (p *PostmarkClient) call(ctx context.Context, method, path string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal Postmark payload", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Postmark request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Postmark-Server-Token", p.token)

	resp, err := p.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.handleErrorResponse(resp, op)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: unreadable Postmark response", op), err)
	}
	return nil
}

func (p *PostmarkClient) handleErrorResponse(resp *http.Response, op string) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Postmark returned status %d with unreadable body", op, resp.StatusCode), err)
	}
	var apiErr postmarkAPIError
	if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return mapPostmarkError(op, resp.StatusCode, apiErr)
}

// mapPostmarkError maps a Postmark failure to an AppError:
//   - ErrorCode 406 (inactive recipient) -> email_blocked
//   - 401 -> upstream provider error (bad server token)
//   - anything else -> upstream provider error carrying the provider message
func mapPostmarkError(op string, status int, apiErr postmarkAPIError) error {
	details := map[string]any{"provider_error_code": apiErr.ErrorCode, "http_status": status}
	switch {
	case apiErr.ErrorCode == postmarkInactiveRecipient:
		return types.NewAppError(types.ErrCodeEmailBlocked,
			fmt.Sprintf("%s: Postmark blocked delivery: %s", op, apiErr.Message), nil).WithDetails(details)
	case status == http.StatusUnauthorized:
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Postmark rejected the server token: %s", op, apiErr.Message), nil).WithDetails(details)
	default:
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Postmark error (%d): %s", op, status, apiErr.Message), nil).WithDetails(details)
	}
}

var _ EmailProvider = (*PostmarkClient)(nil)
