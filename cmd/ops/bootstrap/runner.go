package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// StepKind says where a parameter value comes from.
type StepKind int

const (
	// StepPrompt asks the operator for the value.
	StepPrompt StepKind = iota
	// StepGenerate creates a random value.
	StepGenerate
)

// Step is one parameter the bootstrap populates.
type Step struct {
	EnvVar   string
	Key      string
	Prompt   string
	Secret   bool
	Kind     StepKind
	Validate func(ctx context.Context, value string) error
}

// BuildInventory lists every parameter the Lambdas read through SSM.
func BuildInventory(v *Validator) []Step {
	return []Step{
		{
			EnvVar:   "DATABASE_URL",
			Key:      "database/url",
			Prompt:   "PostgreSQL connection URL",
			Secret:   true,
			Kind:     StepPrompt,
			Validate: v.DatabaseURL,
		},
		{
			EnvVar: "JWT_SIGNING_SECRET",
			Key:    "auth/jwt_signing_secret",
			Secret: true,
			Kind:   StepGenerate,
		},
		{
			EnvVar:   "DIGEST_TIMEZONE",
			Key:      "digest/timezone",
			Prompt:   "Daily digest timezone (IANA, e.g. America/Toronto)",
			Kind:     StepPrompt,
			Validate: v.Timezone,
		},
		{
			EnvVar:   "SQS_SESSION_EVENTS",
			Key:      "queue/session_events_url",
			Prompt:   "Session events SQS queue URL",
			Kind:     StepPrompt,
			Validate: v.QueueURL,
		},
	}
}

// ParameterStore is the SSM surface the runner needs.
type ParameterStore interface {
	Path(key string) string
	Exists(ctx context.Context, path string) (bool, error)
	Get(ctx context.Context, path string) (string, error)
	Put(ctx context.Context, path, value string, secret, overwrite bool) error
}

// Runner walks the inventory and writes each parameter.
type Runner struct {
	SSM       ParameterStore
	Inventory []Step
	Stdin     io.Reader
	Stderr    io.Writer

	// MaxAttempts bounds re-prompts after a validation failure.
	MaxAttempts int

	scanner *bufio.Scanner
}

// NewRunner returns a Runner for the session using the real SSM client.
func NewRunner(sess *Session) *Runner {
	return &Runner{
		SSM:         NewSSMManager(sess),
		Inventory:   BuildInventory(NewValidator()),
		Stdin:       os.Stdin,
		Stderr:      os.Stderr,
		MaxAttempts: 3,
	}
}

type stepOutcome string

const (
	outcomeWritten stepOutcome = "written"
	outcomeSkipped stepOutcome = "skipped"
)

type stepResult struct {
	Step    Step
	Path    string
	Outcome stepOutcome
}

// Run processes every step and prints the SSM pointer variables.
func (r *Runner) Run(ctx context.Context) error {
	results := make([]stepResult, 0, len(r.Inventory))
	for _, step := range r.Inventory {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := r.processStep(ctx, step)
		if err != nil {
			return fmt.Errorf("%s: %w", step.EnvVar, err)
		}
		results = append(results, res)
	}
	r.printSummary(results)
	return nil
}

func (r *Runner) processStep(ctx context.Context, step Step) (stepResult, error) {
	path := r.SSM.Path(step.Key)
	res := stepResult{Step: step, Path: path}

	exists, err := r.SSM.Exists(ctx, path)
	if err != nil {
		return res, err
	}
	if exists {
		overwrite, err := r.confirm(fmt.Sprintf("%s already exists. Overwrite? [y/N]: ", path))
		if err != nil {
			return res, err
		}
		if !overwrite {
			res.Outcome = outcomeSkipped
			return res, nil
		}
	}

	var value string
	switch step.Kind {
	case StepGenerate:
		value, err = GenerateSecureToken()
		if err == nil {
			fmt.Fprintf(r.Stderr, "Generated %s.\n", step.EnvVar)
		}
	default:
		value, err = r.promptAndValidate(ctx, step)
	}
	if err != nil {
		return res, err
	}

	if err := r.SSM.Put(ctx, path, value, step.Secret, exists); err != nil {
		return res, err
	}
	res.Outcome = outcomeWritten
	return res, nil
}

func (r *Runner) promptAndValidate(ctx context.Context, step Step) (string, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	prompt := fmt.Sprintf("%s (%s): ", step.Prompt, step.EnvVar)

	for i := 0; i < attempts; i++ {
		var (
			value string
			err   error
		)
		if step.Secret {
			value, err = r.readSecretInput(prompt)
		} else {
			value, err = r.readInput(prompt)
		}
		if err != nil {
			return "", err
		}
		if value == "" {
			fmt.Fprintln(r.Stderr, "  value is required")
			continue
		}
		if step.Validate != nil {
			if verr := step.Validate(ctx, value); verr != nil {
				fmt.Fprintf(r.Stderr, "  invalid: %v\n", verr)
				continue
			}
		}
		return value, nil
	}
	return "", fmt.Errorf("no valid value after %d attempts", attempts)
}

func (r *Runner) getScanner() *bufio.Scanner {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.Stdin)
	}
	return r.scanner
}

func (r *Runner) readInput(prompt string) (string, error) {
	fmt.Fprint(r.Stderr, prompt)
	s := r.getScanner()
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", errors.New("unexpected end of input")
	}
	return strings.TrimSpace(s.Text()), nil
}

// readSecretInput disables echo when stdin is a terminal.
func (r *Runner) readSecretInput(prompt string) (string, error) {
	if f, ok := r.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(r.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return r.readInput(prompt)
}

func (r *Runner) confirm(prompt string) (bool, error) {
	answer, err := r.readInput(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (r *Runner) printSummary(results []stepResult) {
	fmt.Fprintln(r.Stderr)
	for _, res := range results {
		fmt.Fprintf(r.Stderr, "  %-20s %-8s %s\n", res.Step.EnvVar, res.Outcome, res.Path)
	}
	fmt.Fprintln(r.Stderr)
	fmt.Fprintln(r.Stderr, "Add these to the function environment:")
	for _, res := range results {
		fmt.Fprintf(r.Stderr, "  %s_SSM_PARAM=%s\n", res.Step.EnvVar, res.Path)
	}
}
