//go:build linux
// +build linux

package probes

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"

	"github.com/user/netmon/internal/model"
)

// rawARPResolver speaks ARP over an AF_PACKET socket. It needs CAP_NET_RAW.
type rawARPResolver struct {
	iface string
}

func (r *rawARPResolver) Resolve(ctx context.Context, localIP netip.Addr, subnet netip.Prefix, wait time.Duration) ([]model.Device, error) {
	ifi, err := interfaceFor(r.iface, localIP)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface: %w", err)
	}

	proto := htons(unix.ETH_P_ARP)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: proto, Ifindex: ifi.Index}); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", ifi.Name, err)
	}

	tv := unix.NsecToTimeval((100 * time.Millisecond).Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	dst := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  ifi.Index,
		Halen:    6,
	}
	copy(dst.Addr[:], broadcastMAC)

	for _, host := range hostsIn(subnet, localIP) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		frame := buildARPRequest(ifi.HardwareAddr, localIP, host)
		if err := unix.Sendto(fd, frame, 0, dst); err != nil {
			return nil, fmt.Errorf("failed to send arp request: %w", err)
		}
	}

	seen := make(map[netip.Addr]model.Device)
	buf := make([]byte, 1500)
	deadline := time.Now().Add(wait)

	for time.Now().Before(deadline) && ctx.Err() == nil {
		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("failed to read arp reply: %w", err)
		}
		ip, mac, ok := parseARPReply(buf[:n])
		if !ok || !subnet.Contains(ip) || ip == localIP {
			continue
		}
		seen[ip] = model.Device{Address: ip.String(), HardwareAddress: mac.String()}
	}

	devices := make([]model.Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	return devices, nil
}

// htons converts a host-order value to network byte order.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}
