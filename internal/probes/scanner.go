package probes

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// DeviceScanner discovers hosts on the local /24 by broadcasting ARP requests.
type DeviceScanner struct {
	localIP  func() string
	resolver ARPResolver
	wait     time.Duration
}

// NewDeviceScanner creates a scanner. localIP supplies the address whose /24
// is scanned; wait bounds how long replies are collected.
func NewDeviceScanner(localIP func() string, resolver ARPResolver, wait time.Duration) *DeviceScanner {
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &DeviceScanner{
		localIP:  localIP,
		resolver: resolver,
		wait:     wait,
	}
}

// Scan returns every device that answered within the wait window, sorted by
// address. Failures are logged and yield an empty, non-nil list.
func (s *DeviceScanner) Scan(ctx context.Context) []model.Device {
	devices := []model.Device{}

	local := s.localIP()
	subnet, err := SubnetFor(local)
	if err != nil {
		util.Warn("Device scan failed: %v", err)
		return devices
	}
	addr, _ := netip.ParseAddr(local)

	ctx, cancel := context.WithTimeout(ctx, s.wait+time.Second)
	defer cancel()

	found, err := s.resolver.Resolve(ctx, addr, subnet, s.wait)
	if err != nil {
		util.Warn("Device scan failed: %v", err)
		return devices
	}

	seen := make(map[string]bool, len(found))
	for _, d := range found {
		if seen[d.Address] {
			continue
		}
		seen[d.Address] = true
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool {
		a, errA := netip.ParseAddr(devices[i].Address)
		b, errB := netip.ParseAddr(devices[j].Address)
		if errA != nil || errB != nil {
			return devices[i].Address < devices[j].Address
		}
		return a.Less(b)
	})

	util.Debug("device scan of %s found %d hosts", subnet, len(devices))
	return devices
}

// SubnetFor returns the /24 containing an IPv4 address, e.g. 192.168.1.0/24.
func SubnetFor(localIP string) (netip.Prefix, error) {
	addr, err := netip.ParseAddr(localIP)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid local IP %q: %w", localIP, err)
	}
	if !addr.Is4() {
		return netip.Prefix{}, fmt.Errorf("local IP %s is not IPv4", localIP)
	}
	if addr.IsLoopback() {
		return netip.Prefix{}, fmt.Errorf("local IP %s is loopback", localIP)
	}
	return addr.Prefix(24)
}

// hostsIn lists the usable host addresses of a /24, skipping exclude.
func hostsIn(subnet netip.Prefix, exclude netip.Addr) []netip.Addr {
	var hosts []netip.Addr
	base := subnet.Masked().Addr().As4()
	for i := 1; i < 255; i++ {
		ip := netip.AddrFrom4([4]byte{base[0], base[1], base[2], byte(i)})
		if ip == exclude {
			continue
		}
		hosts = append(hosts, ip)
	}
	return hosts
}
