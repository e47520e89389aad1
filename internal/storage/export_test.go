package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/user/netmon/internal/model"
)

func TestExport_RoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, pingEntry(1, 12)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, model.NewPingEntry(1, "10.0.0.1", model.FailedProbe(model.FailureLaunch))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := s.Recent(ctx, model.KindPing, 1, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteExport(&buf, entries); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Fatalf("missing zstd frame magic: % x", buf.Bytes()[:4])
	}

	got, err := ReadExport(&buf)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("len=%d want %d", len(got), len(entries))
	}
	for i := range got {
		if got[i].ID != entries[i].ID || !got[i].Timestamp.Equal(entries[i].Timestamp) {
			t.Fatalf("entry %d: %+v vs %+v", i, got[i], entries[i])
		}
		if got[i].Ping.ProbeResult != entries[i].Ping.ProbeResult {
			t.Fatalf("payload %d: %+v vs %+v", i, got[i].Ping, entries[i].Ping)
		}
	}
}

func TestExport_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteExport(&buf, nil); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	got, err := ReadExport(&buf)
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestReadExport_Garbage(t *testing.T) {
	t.Parallel()

	if _, err := ReadExport(bytes.NewReader([]byte("not zstd at all"))); err == nil {
		t.Fatal("expected error")
	}
}
