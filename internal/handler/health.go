// internal/handler/health.go
package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHealthTimeout = 5 * time.Second

var ErrHealthcheckFailed = errors.New("health check failed")

// CheckFunc reports the health of one named dependency.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthHandler struct {
	Checks  map[string]CheckFunc
	Timeout time.Duration
}

func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Healthz runs every check in parallel and answers 503 if any fails.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]healthCheck, len(h.Checks))
		healthy = true
	)
	for name, check := range h.Checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			res := healthCheck{Status: "healthy"}
			if err := check(ctx); err != nil {
				res = healthCheck{Status: "unhealthy", Error: err.Error()}
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if res.Status != "healthy" {
				healthy = false
			}
		}(name, check)
	}
	wg.Wait()

	status, label := http.StatusOK, "healthy"
	if !healthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	WriteJSON(w, status, map[string]any{"status": label, "checks": results})
}
