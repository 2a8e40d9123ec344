package health

import (
	"context"
	"time"
)

// Probe checks one dependency. It must respect the context deadline.
type Probe func(ctx context.Context) error

type Check struct {
	Name  string
	Probe Probe
}

type Result struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProbeRunner drives readiness checks with a shared per-call timeout.
type ProbeRunner struct {
	checks  []Check
	timeout time.Duration
}

func NewProbeRunner(timeout time.Duration, checks ...Check) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{checks: checks, timeout: timeout}
}

// Ready runs every check and reports per-check results. One failing
// dependency makes the whole endpoint report unready.
func (p *ProbeRunner) Ready(ctx context.Context) (bool, []Result) {
	ready := true
	results := make([]Result, 0, len(p.checks))
	for _, check := range p.checks {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := check.Probe(probeCtx)
		cancel()
		if err != nil {
			ready = false
			results = append(results, Result{Name: check.Name, Status: "down", Error: err.Error()})
			continue
		}
		results = append(results, Result{Name: check.Name, Status: "up"})
	}
	return ready, results
}
