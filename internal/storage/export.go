package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/user/netmon/internal/model"
)

// WriteExport writes entries to w as zstd-compressed JSON lines.
func WriteExport(w io.Writer, entries []model.LogEntry) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	jw := json.NewEncoder(enc)
	for i := range entries {
		if err := jw.Encode(&entries[i]); err != nil {
			enc.Close()
			return fmt.Errorf("failed to encode entry %d: %w", entries[i].ID, err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

// ReadExport decodes an export written by WriteExport.
func ReadExport(r io.Reader) ([]model.LogEntry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var entries []model.LogEntry
	jd := json.NewDecoder(dec)
	for {
		var e model.LogEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode export: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
