package handlers

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/log"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Check probes one dependency of the process.
type Check func(ctx context.Context) error

type HealthReport struct {
	Status    string            `json:"status"`
	Databases map[string]string `json:"databases"`
}

// Health reports the state of every named store; any failing check turns
// the response into a 503. checks is called per request so that stores
// registered after start are probed too.
func Health(checks func() map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		current := checks()
		names := slices.Sorted(maps.Keys(current))
		report := HealthReport{Status: StatusHealthy, Databases: make(map[string]string, len(names))}

		for _, name := range names {
			err := current[name](ctx)
			if err != nil {
				log.Warn(ctx, "Health check failed", log.ErrorAttr(err))

				report.Status = StatusDegraded
				report.Databases[name] = err.Error()

				continue
			}

			report.Databases[name] = StatusHealthy
		}

		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}

		write.JSON(ctx, w, status, report)
	}
}
