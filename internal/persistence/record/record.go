// Package record reads and writes archived game records. A record is the
// complete replayable history of one game: start info, every sealed turn, and
// the periodic hash samples replay verification compares against.
package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"terrafront.io/internal/protocol"
)

// Finalize completes a partial record for archival: it stamps the end time,
// records the reported winner, and drops trailing turns that carry neither
// intents nor a hash sample, which a record accumulates while players idle at
// the end of a match.
func Finalize(rec protocol.GameRecord, winner string, endedAt time.Time) protocol.GameRecord {
	last := len(rec.Turns)
	for last > 0 {
		t := rec.Turns[last-1]
		if len(t.Intents) > 0 || t.Hash != "" {
			break
		}
		last--
	}
	rec.Turns = rec.Turns[:last]
	rec.Info.EndedAt = endedAt.UnixMilli()
	rec.Info.Winner = winner
	return rec
}

// Path returns the archive location for a game ID under baseDir.
func Path(baseDir, gameID string) string {
	return filepath.Join(baseDir, "records", gameID+".rec.zst")
}

// Write stores a record as zstd-compressed JSON.
func Write(path string, rec protocol.GameRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	if err := json.NewEncoder(bw).Encode(&rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

func Read(path string) (protocol.GameRecord, error) {
	var rec protocol.GameRecord
	f, err := os.Open(path)
	if err != nil {
		return rec, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return rec, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if err := json.NewDecoder(br).Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
