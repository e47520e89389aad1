//go:build !linux
// +build !linux

package probes

import (
	"context"
	"net/netip"
	"time"

	"github.com/user/netmon/internal/model"
)

type rawARPResolver struct {
	iface string
}

func (r *rawARPResolver) Resolve(ctx context.Context, localIP netip.Addr, subnet netip.Prefix, wait time.Duration) ([]model.Device, error) {
	return nil, ErrARPUnsupported
}
