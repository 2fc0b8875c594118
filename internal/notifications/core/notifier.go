package core

import (
	"context"
	"fmt"
	"log/slog"

	"myomesh/internal/types"
)

// Notifier handles session change events end to end: it loads the
// organization's settings, decides the recipients, renders and dispatches.
type Notifier struct {
	store      Store
	decider    *Decider
	renderer   Renderer
	dispatcher Dispatcher
	metrics    NotificationMetrics
	logger     *slog.Logger
}

// NotifierConfig holds the collaborators of a Notifier.
type NotifierConfig struct {
	Store      Store
	Decider    *Decider
	Renderer   Renderer
	Dispatcher Dispatcher
	Metrics    NotificationMetrics
	Logger     *slog.Logger
}

// NewNotifier creates a Notifier. Metrics and Logger are optional.
func NewNotifier(cfg NotifierConfig) *Notifier {
	n := &Notifier{
		store:      cfg.Store,
		decider:    cfg.Decider,
		renderer:   cfg.Renderer,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if n.metrics == nil {
		n.metrics = NoopMetrics{}
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	return n
}

// HandleSessionEvent processes one validated event. Missing settings, disabled
// notifications and a missing provider token are no-ops. Store failures and
// delivery failures are returned so the host can redeliver.
func (n *Notifier) HandleSessionEvent(ctx context.Context, evt types.SessionEvent) error {
	logger := n.logger.With(
		"event_id", evt.EventID,
		"organization_id", evt.OrganizationID,
		"session_id", evt.SessionID,
		"kind", evt.Kind,
	)

	// Untracked edits are dropped before any lookup.
	if evt.Kind == types.SessionUpdated && !ComputeChangeSet(*evt.Before, *evt.After).Any() {
		logger.DebugContext(ctx, "no significant session changes")
		return nil
	}

	settings, org, err := n.loadOrgContext(ctx, evt.OrganizationID)
	if err != nil {
		return err
	}
	if !enabled(settings) {
		logger.DebugContext(ctx, "notifications disabled for organization")
		return nil
	}

	var reqs []types.MessageRequest
	switch evt.Kind {
	case types.SessionCreated:
		reqs, err = n.decider.OnSessionCreated(ctx, withOrg(*evt.After, evt.OrganizationID), settings, org)
	case types.SessionUpdated:
		reqs, err = n.decider.OnSessionUpdated(ctx,
			withOrg(*evt.Before, evt.OrganizationID), withOrg(*evt.After, evt.OrganizationID), settings, org)
	case types.SessionDeleted:
		reqs, err = n.decider.OnSessionDeleted(ctx, withOrg(*evt.Before, evt.OrganizationID), settings, org)
	default:
		return types.NewAppError(types.ErrCodeValidationInvalidEvent, fmt.Sprintf("unknown event kind %q", evt.Kind), nil)
	}
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		logger.InfoContext(ctx, "no recipients for session event")
		return nil
	}
	if settings.ProviderToken.Empty() {
		logger.WarnContext(ctx, "email provider token not configured; skipping dispatch", "messages", len(reqs))
		return nil
	}

	msgs := make([]types.OutboundMessage, 0, len(reqs))
	for _, req := range reqs {
		msg, err := n.renderer.Render(req)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	receipts, err := n.dispatcher.SendBatch(ctx, settings.ProviderToken, settings.Sender(), msgs)
	n.recordOutcome(ctx, msgs, receipts)
	if err != nil {
		logger.ErrorContext(ctx, "session notification dispatch failed",
			"error", err,
			"messages", len(msgs),
			"sent", len(receipts),
		)
		return err
	}

	logger.InfoContext(ctx, "session notifications sent", "messages", len(msgs))
	return nil
}

func (n *Notifier) loadOrgContext(ctx context.Context, orgID string) (*types.EmailSettings, *types.Organization, error) {
	settings, ok, err := n.store.GetSettings(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("notifier: get settings: %w", err)
	}
	if !ok {
		return nil, nil, nil
	}
	org, ok, err := n.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("notifier: get organization: %w", err)
	}
	if !ok {
		return &settings, nil, nil
	}
	return &settings, &org, nil
}

// recordOutcome counts accepted receipts as sent. Rejected receipts and
// messages that were never attempted count as failed.
func (n *Notifier) recordOutcome(ctx context.Context, msgs []types.OutboundMessage, receipts []types.Receipt) {
	sent := make(map[types.NotificationKind]int)
	failed := make(map[types.NotificationKind]int)
	for i, msg := range msgs {
		if i < len(receipts) && receipts[i].Accepted() {
			sent[msg.Kind]++
		} else {
			failed[msg.Kind]++
		}
	}
	for kind, c := range sent {
		n.metrics.RecordSent(ctx, kind, c)
	}
	for kind, c := range failed {
		n.metrics.RecordFailed(ctx, kind, c)
	}
}

func withOrg(s types.Session, orgID string) types.Session {
	if s.OrganizationID == "" {
		s.OrganizationID = orgID
	}
	return s
}
