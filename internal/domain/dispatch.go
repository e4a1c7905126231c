package domain

// OutboundEnvelope is a unit of work placed on the outbound dispatch bus by any
// producer (agent session, scheduler, tool) and consumed by the single
// dispatcher loop that routes it to the named channel transport.
type OutboundEnvelope struct {
	ChannelName string
	ChatID      string
	Content     string
	Metadata    map[string]string
}
