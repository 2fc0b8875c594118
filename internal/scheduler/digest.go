package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"myomesh/internal/notifications/digest"
	"myomesh/internal/types"
)

// OrganizationLister lists every organization the digest should consider.
type OrganizationLister interface {
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}

// DigestBuilder builds the digest requests for one organization and date.
type DigestBuilder interface {
	BuildDailyDigest(ctx context.Context, orgID, date string) (*digest.Result, error)
}

// MessageRenderer renders a decided message.
type MessageRenderer interface {
	Render(req types.MessageRequest) (types.OutboundMessage, error)
}

// MessageSender delivers one message with an organization's credential.
type MessageSender interface {
	Send(ctx context.Context, token types.SecretString, from types.Sender, msg types.OutboundMessage) (types.Receipt, error)
}

// KindMetrics counts dispatched messages per kind.
type KindMetrics interface {
	RecordSent(ctx context.Context, kind types.NotificationKind, count int)
	RecordFailed(ctx context.Context, kind types.NotificationKind, count int)
}

// DailyDigestJob sends every staff member their schedule for tomorrow.
type DailyDigestJob struct {
	orgs     OrganizationLister
	builder  DigestBuilder
	renderer MessageRenderer
	sender   MessageSender
	loc      *time.Location
	sendTime string
	metrics  KindMetrics
	jobs     JobMetrics
	logger   *slog.Logger
}

// DailyDigestJobConfig holds the collaborators of a DailyDigestJob.
type DailyDigestJobConfig struct {
	Organizations OrganizationLister
	Builder       DigestBuilder
	Renderer      MessageRenderer
	Sender        MessageSender
	// Location is the timezone "tomorrow" is computed in. Defaults to UTC.
	Location *time.Location
	// SendTime is the scheduled local run time, used to log the next run.
	SendTime   string
	Metrics    KindMetrics
	JobMetrics JobMetrics
	Logger     *slog.Logger
}

// NewDailyDigestJob creates a DailyDigestJob.
func NewDailyDigestJob(cfg DailyDigestJobConfig) *DailyDigestJob {
	j := &DailyDigestJob{
		orgs:     cfg.Organizations,
		builder:  cfg.Builder,
		renderer: cfg.Renderer,
		sender:   cfg.Sender,
		loc:      cfg.Location,
		sendTime: cfg.SendTime,
		metrics:  cfg.Metrics,
		jobs:     cfg.JobMetrics,
		logger:   cfg.Logger,
	}
	if j.loc == nil {
		j.loc = time.UTC
	}
	if j.jobs == nil {
		j.jobs = noopJobMetrics{}
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	return j
}

// Run sends the digests for the day after now. Organizations are processed
// one at a time; a failing organization is logged and the rest still run.
// Returns the number of digests sent and the joined per-organization errors.
func (j *DailyDigestJob) Run(ctx context.Context, now time.Time) (int, error) {
	date := TomorrowIn(now, j.loc)

	orgIDs, err := j.orgs.ListOrganizationIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing organizations: %w", err)
	}

	j.logger.InfoContext(ctx, "running daily digest",
		"date", date,
		"timezone", j.loc.String(),
		"organizations", len(orgIDs),
	)

	total := 0
	var errs []error
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sent, err := j.runOrg(ctx, orgID, date)
		total += sent
		if err != nil {
			j.logger.ErrorContext(ctx, "daily digest failed for organization",
				"organization_id", orgID,
				"error", err,
				"sent_before_error", sent,
			)
			errs = append(errs, fmt.Errorf("organization %s: %w", orgID, err))
		}
	}

	j.jobs.RecordJob(ctx, types.MetricDigestsSent, total)

	attrs := []any{"date", date, "sent", total, "failed_organizations", len(errs)}
	if j.sendTime != "" {
		if next, err := NextRunAt(now, j.sendTime, j.loc); err == nil {
			attrs = append(attrs, "next_run", next.Format(time.RFC3339))
		}
	}
	j.logger.InfoContext(ctx, "daily digest complete", attrs...)

	return total, errors.Join(errs...)
}

// runOrg sends one organization's digests. The first delivery failure stops
// the organization; messages already sent are not retracted.
func (j *DailyDigestJob) runOrg(ctx context.Context, orgID, date string) (int, error) {
	result, err := j.builder.BuildDailyDigest(ctx, orgID, date)
	if err != nil {
		return 0, err
	}
	if result == nil || len(result.Requests) == 0 {
		return 0, nil
	}
	if result.Settings.ProviderToken.Empty() {
		j.logger.WarnContext(ctx, "email provider token not configured; skipping digest",
			"organization_id", orgID,
			"digests", len(result.Requests),
		)
		return 0, nil
	}

	sent := 0
	defer func() {
		if j.metrics != nil && sent > 0 {
			j.metrics.RecordSent(ctx, types.KindDailyDigest, sent)
		}
	}()
	for _, req := range result.Requests {
		msg, err := j.renderer.Render(req)
		if err != nil {
			return sent, err
		}
		if _, err := j.sender.Send(ctx, result.Settings.ProviderToken, result.Settings.Sender(), msg); err != nil {
			j.recordFailed(ctx)
			return sent, err
		}
		sent++
		j.logger.InfoContext(ctx, "daily digest sent",
			"organization_id", orgID,
			"staff", req.RecipientName,
			"sessions", len(req.DigestSessions),
		)
	}
	return sent, nil
}

func (j *DailyDigestJob) recordFailed(ctx context.Context) {
	if j.metrics != nil {
		j.metrics.RecordFailed(ctx, types.KindDailyDigest, 1)
	}
}
