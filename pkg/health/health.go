// Package health wires liveness and readiness checks for the exporter's own
// HTTP server, independent of the health of any upstream endpoint a scrape
// fetches.
package health

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/jsonexporter/json-exporter/pkg/compile"
)

// NewHandler builds a healthcheck.Handler with the exporter's checks wired
// in: liveness is unconditional once the process is up; readiness requires
// a successfully compiled configuration with at least one endpoint.
func NewHandler(cfg *compile.Config) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("process", func() error { return nil })
	h.AddReadinessCheck("configuration", func() error {
		if cfg == nil || len(cfg.Endpoints) == 0 {
			return fmt.Errorf("no endpoints configured")
		}
		return nil
	})
	return h
}
