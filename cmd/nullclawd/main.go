// Command nullclawd wires the substrate — security sandbox and policy engine,
// tool reliability executor, observability timeline, outbound dispatch,
// federation heartbeats with mDNS peer discovery, and the scheduler — into
// one running daemon. The orchestration pipeline and memory decay are not
// wired here.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nullclaw/internal/adapter/peerdiscovery"
	"nullclaw/internal/domain"
	"nullclaw/internal/infra/config"
	"nullclaw/internal/infra/logger"
	"nullclaw/internal/infra/tracer"
	"nullclaw/internal/security"
	"nullclaw/internal/usecase/dispatch"
	"nullclaw/internal/usecase/federation"
	"nullclaw/internal/usecase/reliability"
	"nullclaw/internal/usecase/scheduler"
	"nullclaw/internal/usecase/scheduling"
	"nullclaw/internal/usecase/timeline"
)

const (
	gossipPort       = 7946
	peerScanInterval = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := configPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	sandbox, err := security.NewSandbox(cfg.Security.ConsentDir)
	if err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}

	policy := security.NewPolicy(cfg.Autonomy, cfg.Policy, cfg.WorkspacePolicies, log)

	executor := reliability.NewExecutor(cfg.Reliability, log)

	if err := os.MkdirAll(cfg.Timeline.DataDir, 0755); err != nil {
		return fmt.Errorf("timeline data dir: %w", err)
	}
	store, err := timeline.NewStore(filepath.Join(cfg.Timeline.DataDir, "events.jsonl"))
	if err != nil {
		return fmt.Errorf("timeline store: %w", err)
	}

	// Every policy denial lands on the observability timeline alongside
	// tool and sync events, so a denied command is visible in the same
	// replay stream that explains why a task stalled.
	policy.SetDenyHook(func(d domain.PolicyDenial) {
		if err := store.Append(domain.TimelineEvent{
			Kind:      "policy",
			Severity:  domain.SeverityWarn,
			Name:      "command_denied",
			Message:   fmt.Sprintf("%s: %s (risk=%s)", d.Reason, d.Command, d.Risk),
			Component: "security.Policy",
		}); err != nil {
			log.Warn("failed to record policy denial", "error", err)
		}
	})

	bus := dispatch.NewBus()
	registry := dispatch.NewChannelRegistry(nil, log)
	dispatcher := dispatch.NewDispatcher(bus, registry, log)
	go dispatcher.Run(ctx)

	log.Info("substrate ready",
		"sandbox_root", sandbox.Root(),
		"policy_autonomy", cfg.Autonomy.Level,
		"circuit_breakers", executor.Circuit() != nil,
		"timeline_path", filepath.Join(cfg.Timeline.DataDir, "events.jsonl"),
	)

	heartbeatCfg := domain.HeartbeatConfig{
		IntervalMs:          cfg.Federation.HeartbeatInterval.Milliseconds(),
		DegradedAfterMissed: cfg.Federation.DegradedAfterMissed,
		OfflineAfterMissed:  cfg.Federation.OfflineAfterMissed,
	}
	fedManager := federation.NewManager(heartbeatCfg, log)
	fedManager.StartHeartbeatChecker(ctx)

	discoverer := peerdiscovery.NewMDNSDiscoverer(log)
	go func() {
		if err := discoverer.Advertise(ctx, cfg.Node.ID, gossipPort, nil); err != nil {
			log.Warn("mdns advertise failed", "error", err)
		}
	}()
	go runPeerScanLoop(ctx, discoverer, fedManager, log)

	sched := scheduling.NewScheduler(log)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Register(sched, scheduler.Config{
			NodeID:            cfg.Node.ID,
			PruneSchedule:     cfg.Scheduler.MemoryPruneCron,
			HeartbeatSchedule: cfg.Scheduler.HeartbeatCron,
		}, nil, nil, nil, nil); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start: %w", err)
	}
	defer sched.Stop()

	log.Info("nullclawd started", "config", cfgPath)

	<-ctx.Done()
	log.Info("nullclawd shutting down")
	return nil
}

func configPath() string {
	if p := os.Getenv("NULLCLAW_CONFIG"); p != "" {
		return p
	}
	return "./config.yaml"
}

// runPeerScanLoop periodically browses for peers over mDNS and registers
// each newly seen node with the federation manager.
func runPeerScanLoop(ctx context.Context, d *peerdiscovery.MDNSDiscoverer, fed *federation.Manager, log *slog.Logger) {
	ticker := time.NewTicker(peerScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			peers, err := d.Scan(ctx)
			if err != nil {
				log.Warn("mdns scan failed", "error", err)
				continue
			}
			for _, p := range peers {
				fed.Peer(p.Node)
			}
		}
	}
}
