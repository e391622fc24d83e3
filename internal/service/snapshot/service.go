// Package snapshot assembles the aggregate dashboard view from the agent's
// state files. Every call re-reads disk; nothing is memoized.
package snapshot

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
	"github.com/altoslab447/openclaw-dashboard/internal/parser"
)

// DailyLogDays is the number of dated notes included in a snapshot.
const DailyLogDays = 7

// Source is the set of extractors a snapshot is built from.
type Source interface {
	Agent() domain.Agent
	Kanban() domain.Kanban
	Skills() []domain.Skill
	Cron() []domain.CronJob
	Memory() domain.Memory
	Config() domain.ConfigSummary
	Stability() domain.Stability
	DailyLogs(maxDays int) []domain.DailyLog
}

// Assembler builds snapshots on demand.
type Assembler struct {
	source Source
	now    func() time.Time
}

// New returns an Assembler over source.
func New(source Source) *Assembler {
	return &Assembler{source: source, now: time.Now}
}

// Snapshot reads every state file concurrently and returns the aggregate.
// Extractors never fail, so the only error is ctx cancellation.
func (a *Assembler) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}
	run(func() { snap.Agent = a.source.Agent() })
	run(func() { snap.Kanban = a.source.Kanban() })
	run(func() { snap.Skills = a.source.Skills() })
	run(func() { snap.Cron = a.source.Cron() })
	run(func() { snap.Memory = a.source.Memory() })
	run(func() { snap.Config = a.source.Config() })
	run(func() { snap.Stability = a.source.Stability() })
	run(func() { snap.DailyLogs = a.source.DailyLogs(DailyLogDays) })
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.DailyLogs == nil {
		snap.DailyLogs = []domain.DailyLog{}
	}
	snap.Timestamp = a.now().UTC().Format(time.RFC3339Nano)
	return snap, nil
}

var _ Source = (*parser.Reader)(nil)
