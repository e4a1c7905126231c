package dispatch

import (
	"context"
	"log/slog"

	"nullclaw/internal/domain"
)

// Dispatcher drains a Bus and routes each envelope to its named channel.
// Channel send errors are isolated per-message; they never poison the loop.
type Dispatcher struct {
	bus      *Bus
	registry *ChannelRegistry
	logger   *slog.Logger
}

// NewDispatcher wires a Bus to a ChannelRegistry.
func NewDispatcher(bus *Bus, registry *ChannelRegistry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{bus: bus, registry: registry, logger: logger}
}

// Run drains all pending messages and blocks for more until ctx is
// cancelled or the bus is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		msg, ok := d.bus.ConsumeOutbound(ctx)
		if !ok {
			return
		}
		d.dispatchOne(ctx, msg)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, msg domain.OutboundEnvelope) {
	ch, err := d.registry.Get(msg.ChannelName)
	if err != nil {
		d.bus.channelNotFound.Add(1)
		d.logger.Warn("outbound dispatch: channel not found", "channel", msg.ChannelName)
		return
	}

	out := domain.OutboundMessage{
		SessionID: msg.ChatID,
		Content:   msg.Content,
		Metadata:  msg.Metadata,
	}
	if err := ch.Send(ctx, out); err != nil {
		d.bus.errors.Add(1)
		d.logger.Error("outbound dispatch: send failed", "channel", msg.ChannelName, "error", err)
		return
	}
	d.bus.dispatched.Add(1)
}
