// internal/integration/seamless.go
package integration

import (
	"context"
	"log/slog"
)

// SeamlessProvider is the lead-sourcing hook. Seamless.AI has no public API
// we can call, so it returns no rows until one is available.
type SeamlessProvider struct {
	log *slog.Logger
}

func NewSeamlessProvider(log *slog.Logger) *SeamlessProvider {
	return &SeamlessProvider{log: log}
}

func (p *SeamlessProvider) FetchLeads(ctx context.Context, apiKey string) []map[string]string {
	if apiKey == "" {
		p.log.DebugContext(ctx, "seamless fetch skipped, no api key")
	}
	return []map[string]string{}
}
