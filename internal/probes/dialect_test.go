package probes

import (
	"testing"

	"github.com/user/netmon/internal/model"
)

const windowsNoLossOutput = `
Pinging google.com [142.250.80.46] with 32 bytes of data:
Reply from 142.250.80.46: bytes=32 time=22ms TTL=117
Reply from 142.250.80.46: bytes=32 time=23ms TTL=117
Reply from 142.250.80.46: bytes=32 time=24ms TTL=117
Reply from 142.250.80.46: bytes=32 time=23ms TTL=117

Ping statistics for 142.250.80.46:
    Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 22ms, Maximum = 24ms, Average = 23ms
`

const windowsHalfLossOutput = `
Ping statistics for 10.0.0.9:
    Packets: Sent = 4, Received = 2, Lost = 2 (50% loss),
Approximate round trip times in milli-seconds:
    Minimum = 5ms, Maximum = 7ms, Average = 6ms
`

const unixNoLossOutput = `PING example.com (93.184.216.34) 56(84) bytes of data.
64 bytes from 93.184.216.34: icmp_seq=1 ttl=56 time=10.1 ms
64 bytes from 93.184.216.34: icmp_seq=2 ttl=56 time=20.0 ms

--- example.com ping statistics ---
4 packets transmitted, 4 received, 0% packet loss, time 3004ms
rtt min/avg/max/mdev = 10.1/15.4/20.0/2.1 ms
`

const unixQuarterLossOutput = `--- example.com ping statistics ---
4 packets transmitted, 3 received, 25% packet loss, time 3004ms
rtt min/avg/max/mdev = 10.1/15.4/20.0/2.1 ms
`

const darwinNoLossOutput = `--- avg.example.net ping statistics ---
4 packets transmitted, 4 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 8.012/9.250/11.003/1.101 ms
`

func TestDialectFor(t *testing.T) {
	t.Parallel()

	if DialectFor("windows").Name() != "windows" {
		t.Fatalf("windows dialect not selected")
	}
	for _, goos := range []string{"linux", "darwin", "freebsd"} {
		if got := DialectFor(goos).Name(); got != "unix" {
			t.Fatalf("DialectFor(%s)=%s", goos, got)
		}
	}
}

func TestDialectArgs(t *testing.T) {
	t.Parallel()

	win := WindowsDialect{}.Args("host", 4)
	if len(win) != 3 || win[0] != "-n" || win[1] != "4" || win[2] != "host" {
		t.Fatalf("windows args=%v", win)
	}
	unix := UnixDialect{}.Args("host", 4)
	if len(unix) != 3 || unix[0] != "-c" || unix[1] != "4" || unix[2] != "host" {
		t.Fatalf("unix args=%v", unix)
	}
}

func TestWindowsDialect_Parse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		output string
		want   model.ProbeResult
	}{
		{"no loss", windowsNoLossOutput, model.ProbeResult{AvgLatencyMs: 23, PacketLossPct: 0}},
		{"half loss", windowsHalfLossOutput, model.ProbeResult{AvgLatencyMs: 999, PacketLossPct: 50, Failure: model.FailurePacketLoss}},
		{
			"no loss without average",
			"Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),\n",
			model.ProbeResult{AvgLatencyMs: 0, PacketLossPct: 0},
		},
		{
			"total loss",
			"Packets: Sent = 4, Received = 0, Lost = 4 (100% loss),\n",
			model.ProbeResult{AvgLatencyMs: 999, PacketLossPct: 100, Failure: model.FailurePacketLoss},
		},
		{"unreachable", "Ping request could not find host nowhere.\n", model.FailedProbe(model.FailureUnparsable)},
		{"empty", "", model.FailedProbe(model.FailureUnparsable)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := WindowsDialect{}.Parse(tc.output, 4)
			if got != tc.want {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestWindowsDialect_CRLF(t *testing.T) {
	t.Parallel()

	out := "    Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),\r\n" +
		"    Minimum = 1ms, Maximum = 3ms, Average = 2ms\r\n"
	got := WindowsDialect{}.Parse(out, 4)
	if got.AvgLatencyMs != 2 || got.PacketLossPct != 0 {
		t.Fatalf("got=%+v", got)
	}
}

func TestUnixDialect_Parse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		output string
		want   model.ProbeResult
	}{
		{"no loss", unixNoLossOutput, model.ProbeResult{AvgLatencyMs: 15.4, PacketLossPct: 0}},
		{"darwin", darwinNoLossOutput, model.ProbeResult{AvgLatencyMs: 9.25, PacketLossPct: 0}},
		// any loss reports total failure rather than the measured 25%
		{"quarter loss", unixQuarterLossOutput, model.FailedProbe(model.FailurePacketLoss)},
		{
			"total loss",
			"4 packets transmitted, 0 received, 100% packet loss, time 3060ms\n",
			model.FailedProbe(model.FailurePacketLoss),
		},
		{
			"no loss without stats",
			"4 packets transmitted, 4 received, 0% packet loss\n",
			model.FailedProbe(model.FailureUnparsable),
		},
		{"unknown host", "ping: nowhere: Name or service not known\n", model.FailedProbe(model.FailureUnparsable)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := UnixDialect{}.Parse(tc.output, 4)
			if got != tc.want {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}
