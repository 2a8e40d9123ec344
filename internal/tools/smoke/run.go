// Package smoke drives synthetic traffic against a running instance so
// deploys can be verified end to end before real users arrive.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config controls the generated traffic mix.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64

	// Credentials for the auth profile. Left empty, login requests
	// still exercise the endpoint and count the expected 401s.
	Identifier string
	Password   string
}

// Result summarizes one smoke run.
type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
	Elapsed       time.Duration
}

type request struct {
	method string
	path   string
	body   []byte
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func (c Config) pick(rng *rand.Rand) request {
	health := request{method: http.MethodGet, path: "/health/ready"}
	login := request{
		method: http.MethodPost,
		path:   "/api/v1/auth/student-login",
		body:   c.loginBody(),
	}
	browse := request{method: http.MethodGet, path: "/api/v1/clubs"}

	switch normalizeProfile(c.Profile) {
	case "health":
		return health
	case "auth":
		return login
	case "browse":
		return browse
	default:
		switch rng.Intn(3) {
		case 0:
			return health
		case 1:
			return login
		default:
			return browse
		}
	}
}

func (c Config) loginBody() []byte {
	payload := map[string]string{
		"identifier": c.Identifier,
		"password":   c.Password,
		"device":     "smoke",
	}
	if payload["identifier"] == "" {
		payload["identifier"] = "smoke-probe"
		payload["password"] = "smoke-probe"
	}
	b, _ := json.Marshal(payload)
	return b
}

// Run fires paced requests at the target until the duration elapses.
// Network errors and 5xx responses count as failures; 4xx responses do
// not, since the auth profile expects rejections.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("smoke: base url is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}

	client := &http.Client{Timeout: 10 * time.Second}
	work := make(chan request)

	var mu sync.Mutex
	res := &Result{StatusClasses: map[string]int{}}
	start := time.Now()

	// Only the dispatcher runs against the duration deadline. Requests
	// already in flight when it expires drain under the client timeout,
	// so the tail of a run never shows up as failures.
	g, reqCtx := errgroup.WithContext(ctx)
	dispatchCtx, stopDispatch := context.WithTimeout(reqCtx, cfg.Duration)
	defer stopDispatch()

	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for r := range work {
				status, err := fire(reqCtx, client, cfg.BaseURL, r)
				if err != nil && reqCtx.Err() != nil {
					// the caller canceled the run, not a target failure
					continue
				}
				mu.Lock()
				res.TotalRequests++
				if err != nil {
					res.Failures++
					res.StatusClasses["error"]++
				} else {
					class := classifyStatusClass(status)
					res.StatusClasses[class]++
					if class == "5xx" {
						res.Failures++
					}
				}
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		rng := rand.New(rand.NewSource(cfg.Seed))
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-dispatchCtx.Done():
				return nil
			case <-ticker.C:
				select {
				case work <- cfg.pick(rng):
				case <-dispatchCtx.Done():
					return nil
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func fire(ctx context.Context, client *http.Client, baseURL string, r request) (int, error) {
	var body *bytes.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, strings.TrimRight(baseURL, "/")+r.path, body)
	if err != nil {
		return 0, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
