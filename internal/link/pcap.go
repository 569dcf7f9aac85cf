//go:build pcap
// +build pcap

package link

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/durin-robotics/durin/internal/monitoring"
	"github.com/durin-robotics/durin/internal/runnable"
	"github.com/durin-robotics/durin/internal/wire"
)

// ReplayFile feeds telemetry datagrams recorded in a capture file through
// the same decode-and-enqueue path as a live UDP link, so the aggregator
// can be exercised offline against recorded robot sessions. Only UDP
// packets on udpPort are considered. The queue's drop-on-full policy
// applies to replayed datagrams exactly as it does to live ones.
//
// Only available when building with the 'pcap' tag.
func ReplayFile(ctx context.Context, path string, udpPort int, q *runnable.Queue[wire.Packet]) error {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", path, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		return fmt.Errorf("failed to set BPF filter %q: %w", filter, err)
	}

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	var replayed, malformed int
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pcap replay: stopping after %d datagrams (context cancelled)", replayed)
			return ctx.Err()
		case packet := <-source.Packets():
			if packet == nil {
				monitoring.Logf("pcap replay: %d datagrams (%d malformed) in %v", replayed, malformed, time.Since(start))
				return nil
			}
			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}
			pkt, err := wire.Decode(udp.Payload)
			if err != nil {
				malformed++
				continue
			}
			replayed++
			q.TryPut(pkt)
		}
	}
}
