package stats

import (
	"context"

	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts  []model.Attempt
	Dashboard Dashboard
	Weak      []Zone
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	d := BuildDashboard(attempts)
	return Report{
		Attempts:  attempts,
		Dashboard: d,
		Weak:      WeakZones(d.Zones, 3),
	}, nil
}
