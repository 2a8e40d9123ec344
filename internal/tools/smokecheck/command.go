// Package smokecheck wraps the smoke generator in a cobra command that
// validates a deployed instance: health probes answer, the login doors
// reject garbage credentials uniformly, and traffic never 5xxes.
package smokecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campushub/campus-events-backend/internal/tools/common"
	"github.com/campushub/campus-events-backend/internal/tools/smoke"
	"github.com/campushub/campus-events-backend/internal/tools/ui"
)

type options struct {
	baseURL     string
	profile     string
	duration    time.Duration
	rps         int
	concurrency int
	identifier  string
	password    string
	ci          bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "smoke", Short: "Verify a running instance end to end"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: health, auth, browse or mixed")
	cmd.PersistentFlags().DurationVar(&opts.duration, "duration", 6*time.Second, "traffic duration")
	cmd.PersistentFlags().IntVar(&opts.rps, "rps", 20, "requests per second")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 6, "concurrent workers")
	cmd.PersistentFlags().StringVar(&opts.identifier, "identifier", "", "login identifier for the auth profile")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "", "login password for the auth profile")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate traffic and validate health and auth behavior",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smokecheck run", func(ctx context.Context) ([]string, error) {
				var details []string

				status, err := probe(ctx, opts.baseURL+"/health/live")
				if err != nil {
					return details, err
				}
				if status != http.StatusOK {
					return details, fmt.Errorf("liveness probe returned %d", status)
				}
				details = append(details, "liveness: ok")

				status, err = probe(ctx, opts.baseURL+"/health/ready")
				if err != nil {
					return details, err
				}
				if status != http.StatusOK {
					return details, fmt.Errorf("readiness probe returned %d", status)
				}
				details = append(details, "readiness: ok")

				if err := verifyUniformLoginFailure(ctx, opts.baseURL); err != nil {
					return details, err
				}
				details = append(details, "login failure uniformity: ok")

				res, err := smoke.Run(ctx, smoke.Config{
					BaseURL:     opts.baseURL,
					Profile:     opts.profile,
					Duration:    opts.duration,
					RPS:         opts.rps,
					Concurrency: opts.concurrency,
					Seed:        42,
					Identifier:  opts.identifier,
					Password:    opts.password,
				})
				if err != nil {
					return details, err
				}
				details = append(details, fmt.Sprintf("traffic total=%d failures=%d classes=%v",
					res.TotalRequests, res.Failures, res.StatusClasses))
				if res.Failures > 0 {
					return details, fmt.Errorf("smoke traffic saw %d failures", res.Failures)
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "smokecheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// verifyUniformLoginFailure checks that an unknown identifier and a
// known-shaped identifier with a bad password produce byte-identical
// error envelopes, so the login door leaks nothing about which part
// was wrong.
func verifyUniformLoginFailure(ctx context.Context, baseURL string) error {
	bodyA, statusA, err := attemptLogin(ctx, baseURL, "no-such-student", "definitely-wrong")
	if err != nil {
		return err
	}
	bodyB, statusB, err := attemptLogin(ctx, baseURL, "22bd1a0501", "definitely-wrong")
	if err != nil {
		return err
	}
	if statusA != http.StatusUnauthorized || statusB != http.StatusUnauthorized {
		return fmt.Errorf("expected 401 for both bad logins, got %d and %d", statusA, statusB)
	}
	var envA, envB map[string]any
	if err := json.Unmarshal(bodyA, &envA); err != nil {
		return fmt.Errorf("decode first login envelope: %w", err)
	}
	if err := json.Unmarshal(bodyB, &envB); err != nil {
		return fmt.Errorf("decode second login envelope: %w", err)
	}
	errA, _ := json.Marshal(envA["error"])
	errB, _ := json.Marshal(envB["error"])
	if string(errA) != string(errB) {
		return fmt.Errorf("login failures are distinguishable: %s vs %s", errA, errB)
	}
	return nil
}

func attemptLogin(ctx context.Context, baseURL, identifier, password string) ([]byte, int, error) {
	payload, _ := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
		"device":     "smokecheck",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/api/v1/auth/student-login", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
