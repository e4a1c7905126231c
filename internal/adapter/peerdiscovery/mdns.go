// Package peerdiscovery finds and advertises federation peers on the
// local network over mDNS/DNS-SD.
package peerdiscovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_nullclaw._tcp"
	domainLocal = "local."
	scanTimeout = 5 * time.Second
)

// PeerAddress is one federation peer found on the local network.
type PeerAddress struct {
	Node     string
	Address  string
	Metadata map[string]string
}

// MDNSDiscoverer discovers and advertises federation peers via mDNS.
type MDNSDiscoverer struct {
	logger *slog.Logger
}

// NewMDNSDiscoverer builds a discoverer logging through logger.
func NewMDNSDiscoverer(logger *slog.Logger) *MDNSDiscoverer {
	return &MDNSDiscoverer{logger: logger}
}

// Scan browses the local network for nullclaw peers for up to 5 seconds.
func (d *MDNSDiscoverer) Scan(ctx context.Context) ([]PeerAddress, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var mu sync.Mutex
	var peers []PeerAddress
	var wg sync.WaitGroup

	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			peer := entryToPeer(entry)
			mu.Lock()
			peers = append(peers, peer)
			mu.Unlock()
			d.logger.Debug("mdns discovered peer", "node", peer.Node, "address", peer.Address)
		}
	}()

	if err := resolver.Browse(scanCtx, serviceType, domainLocal, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-scanCtx.Done()
	wg.Wait()

	mu.Lock()
	result := make([]PeerAddress, len(peers))
	copy(result, peers)
	mu.Unlock()

	return result, nil
}

// Advertise registers this node as a nullclaw peer on the local network.
// It blocks until ctx is cancelled; call it in a goroutine.
func (d *MDNSDiscoverer) Advertise(ctx context.Context, node string, port int, metadata map[string]string) error {
	txt := make([]string, 0, len(metadata)+1)
	txt = append(txt, "node="+node)
	for k, v := range metadata {
		txt = append(txt, k+"="+v)
	}

	server, err := zeroconf.Register(node, serviceType, domainLocal, port, txt, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	d.logger.Info("mdns advertising", "node", node, "port", port)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

func entryToPeer(entry *zeroconf.ServiceEntry) PeerAddress {
	var address string
	if len(entry.AddrIPv4) > 0 {
		address = fmt.Sprintf("%s:%d", entry.AddrIPv4[0], entry.Port)
	} else if len(entry.AddrIPv6) > 0 {
		address = fmt.Sprintf("[%s]:%d", entry.AddrIPv6[0], entry.Port)
	}

	metadata := parseTXTRecords(entry.Text)
	node := metadata["node"]
	if node == "" {
		node = entry.ServiceRecord.Instance
	}

	return PeerAddress{
		Node:     node,
		Address:  address,
		Metadata: metadata,
	}
}

func parseTXTRecords(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, t := range txt {
		parts := strings.SplitN(t, "=", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		}
	}
	return m
}
