package probes

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/user/netmon/internal/model"
)

// ErrARPUnsupported is returned by the raw resolver on platforms without
// link-layer sockets.
var ErrARPUnsupported = errors.New("arp scanning is not supported on this platform")

// ARPResolver broadcasts ARP requests for every host in subnet and collects
// replies until wait elapses or ctx ends.
type ARPResolver interface {
	Resolve(ctx context.Context, localIP netip.Addr, subnet netip.Prefix, wait time.Duration) ([]model.Device, error)
}

// NewARPResolver returns the link-layer resolver for this platform. An empty
// iface selects the interface that owns the local address.
func NewARPResolver(iface string) ARPResolver {
	return &rawARPResolver{iface: iface}
}

const (
	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
	arpOpRequest  = 1
	arpOpReply    = 2
	arpFrameLen   = 42
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// buildARPRequest encodes an Ethernet broadcast frame asking who has dst.
func buildARPRequest(srcMAC net.HardwareAddr, src, dst netip.Addr) []byte {
	frame := make([]byte, arpFrameLen)

	copy(frame[0:6], broadcastMAC)
	copy(frame[6:12], srcMAC)
	binary.BigEndian.PutUint16(frame[12:14], etherTypeARP)

	binary.BigEndian.PutUint16(frame[14:16], 1) // ethernet
	binary.BigEndian.PutUint16(frame[16:18], etherTypeIPv4)
	frame[18] = 6
	frame[19] = 4
	binary.BigEndian.PutUint16(frame[20:22], arpOpRequest)

	srcIP := src.As4()
	dstIP := dst.As4()
	copy(frame[22:28], srcMAC)
	copy(frame[28:32], srcIP[:])
	copy(frame[38:42], dstIP[:])

	return frame
}

// parseARPReply decodes an Ethernet ARP reply into its sender addresses.
func parseARPReply(frame []byte) (netip.Addr, net.HardwareAddr, bool) {
	if len(frame) < arpFrameLen {
		return netip.Addr{}, nil, false
	}
	if binary.BigEndian.Uint16(frame[12:14]) != etherTypeARP ||
		binary.BigEndian.Uint16(frame[14:16]) != 1 ||
		binary.BigEndian.Uint16(frame[16:18]) != etherTypeIPv4 ||
		frame[18] != 6 || frame[19] != 4 ||
		binary.BigEndian.Uint16(frame[20:22]) != arpOpReply {
		return netip.Addr{}, nil, false
	}

	mac := make(net.HardwareAddr, 6)
	copy(mac, frame[22:28])
	ip := netip.AddrFrom4([4]byte{frame[28], frame[29], frame[30], frame[31]})
	return ip, mac, true
}

// interfaceFor finds the interface named iface, or the one holding localIP.
func interfaceFor(iface string, localIP netip.Addr) (*net.Interface, error) {
	if iface != "" {
		return net.InterfaceByName(iface)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 || len(ifi.HardwareAddr) != 6 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip, ok := netip.AddrFromSlice(ipnet.IP); ok && ip.Unmap() == localIP {
				return ifi, nil
			}
		}
	}
	return nil, errors.New("no ethernet interface holds " + localIP.String())
}
