// Package scheduler wires the substrate's two periodic background jobs —
// ephemeral memory pruning and federation heartbeat emission — onto the
// generic cron-driven scheduling.Scheduler.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"nullclaw/internal/domain"
	"nullclaw/internal/usecase/scheduling"
)

// EphemeralMemoryPruner removes ephemeral-tier memory records whose
// decayed confidence has fallen below minConfidence as of now. It returns
// the number of records removed.
type EphemeralMemoryPruner interface {
	PruneEphemeral(ctx context.Context, now time.Time, minConfidence float64) (int, error)
}

// HeartbeatSender emits this node's heartbeat to every tracked peer.
type HeartbeatSender interface {
	SendHeartbeat(ctx context.Context, hb domain.Heartbeat) error
}

// Config controls the two jobs' cadence and parameters.
type Config struct {
	NodeID             string
	PruneSchedule      string // cron expression or duration, e.g. "15m"
	PruneMinConfidence float64
	HeartbeatSchedule  string // cron expression or duration, e.g. "30s"
}

// Register adds the prune and heartbeat jobs to s. clock defaults to
// time.Now when nil; seq supplies each emitted heartbeat's sequence
// number and defaults to a counter starting at 1 when nil.
func Register(s *scheduling.Scheduler, cfg Config, pruner EphemeralMemoryPruner, sender HeartbeatSender, clock func() time.Time, seq func() uint64) error {
	if clock == nil {
		clock = time.Now
	}
	if seq == nil {
		var n uint64
		seq = func() uint64 {
			n++
			return n
		}
	}

	if pruner != nil {
		s.RegisterAction(scheduling.ActionMemoryPrune, func(ctx context.Context) error {
			_, err := pruner.PruneEphemeral(ctx, clock(), cfg.PruneMinConfidence)
			return err
		})
		if err := s.AddTask(scheduling.ScheduledTask{
			Name:     "ephemeral-memory-prune",
			Schedule: cfg.PruneSchedule,
			Action:   scheduling.ActionMemoryPrune,
		}); err != nil {
			return fmt.Errorf("scheduler: register prune job: %w", err)
		}
	}

	if sender != nil {
		start := clock()
		s.RegisterAction(scheduling.ActionHeartbeatEmit, func(ctx context.Context) error {
			now := clock()
			return sender.SendHeartbeat(ctx, domain.Heartbeat{
				SourceNode: cfg.NodeID,
				Timestamp:  now.UnixMilli(),
				Sequence:   seq(),
				UptimeMs:   now.Sub(start).Milliseconds(),
			})
		})
		if err := s.AddTask(scheduling.ScheduledTask{
			Name:     "federation-heartbeat-emit",
			Schedule: cfg.HeartbeatSchedule,
			Action:   scheduling.ActionHeartbeatEmit,
		}); err != nil {
			return fmt.Errorf("scheduler: register heartbeat job: %w", err)
		}
	}

	return nil
}
