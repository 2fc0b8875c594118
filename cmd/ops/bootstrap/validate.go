package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// DatabaseConnector verifies that a DSN is reachable.
type DatabaseConnector interface {
	Connect(ctx context.Context, dsn string) error
}

// PgxConnector opens a pgx connection and closes it immediately.
type PgxConnector struct{}

// Connect implements DatabaseConnector.
func (PgxConnector) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

// Validator checks operator input before it is written to SSM.
type Validator struct {
	DB             DatabaseConnector
	ConnectTimeout time.Duration
}

// NewValidator returns a Validator backed by a real pgx connection.
func NewValidator() *Validator {
	return &Validator{DB: PgxConnector{}, ConnectTimeout: 10 * time.Second}
}

// DatabaseURL checks the scheme and then connects.
func (v *Validator) DatabaseURL(ctx context.Context, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("scheme must be postgres or postgresql, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if v.DB == nil {
		return nil
	}

	timeout := v.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := v.DB.Connect(connCtx, value); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}

// Timezone accepts any IANA zone name.
func (v *Validator) Timezone(_ context.Context, value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone %q", value)
	}
	return nil
}

// QueueURL accepts an https SQS queue URL, or http for local emulators.
func (v *Validator) QueueURL(_ context.Context, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return fmt.Errorf("not a valid queue URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("scheme must be https, got %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("queue URL must include the account and queue name")
	}
	return nil
}
