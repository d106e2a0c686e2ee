package record

import (
	"path/filepath"
	"testing"
	"time"

	"terrafront.io/internal/protocol"
)

func sampleRecord() protocol.GameRecord {
	return protocol.GameRecord{
		Info: protocol.GameInfo{
			GameID: "abc123",
			Config: protocol.GameConfig{
				GameType:   protocol.GameTypePrivate,
				Difficulty: protocol.DifficultyMedium,
				MaxPlayers: 4,
				NumBots:    10,
				MapWidth:   100,
				MapHeight:  100,
			},
			Seed:      99,
			Players:   []protocol.PlayerRef{{ClientID: "c1", Username: "alice", PlayerType: protocol.PlayerTypeHuman}},
			StartedAt: time.Now().UnixMilli(),
		},
		Turns: []protocol.Turn{
			{TurnNumber: 0, Intents: []protocol.Intent{{Kind: protocol.IntentSpawn, ClientID: "c1", X: 5, Y: 5}}},
			{TurnNumber: 1},
			{TurnNumber: 2, Hash: "deadbeef"},
			{TurnNumber: 3},
			{TurnNumber: 4},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rec := sampleRecord()
	path := Path(t.TempDir(), rec.Info.GameID)

	if err := Write(path, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Info.GameID != rec.Info.GameID || got.Info.Seed != rec.Info.Seed {
		t.Fatalf("info mismatch: %+v", got.Info)
	}
	if len(got.Turns) != len(rec.Turns) {
		t.Fatalf("turns = %d, want %d", len(got.Turns), len(rec.Turns))
	}
	if got.Turns[0].Intents[0].Kind != protocol.IntentSpawn {
		t.Fatal("intent did not survive the round trip")
	}
	if got.Turns[2].Hash != "deadbeef" {
		t.Fatal("hash sample did not survive the round trip")
	}
}

func TestFinalizeTrimsIdleTail(t *testing.T) {
	endedAt := time.Now()
	rec := Finalize(sampleRecord(), "c1", endedAt)

	// Turns 3 and 4 carry nothing; turn 2 has a hash sample and stays.
	if len(rec.Turns) != 3 {
		t.Fatalf("turns after finalize = %d, want 3", len(rec.Turns))
	}
	if rec.Info.Winner != "c1" {
		t.Fatalf("winner = %q", rec.Info.Winner)
	}
	if rec.Info.EndedAt != endedAt.UnixMilli() {
		t.Fatal("endedAt not stamped")
	}
}

func TestFinalizeKeepsEmptyRecordEmpty(t *testing.T) {
	rec := protocol.GameRecord{Turns: []protocol.Turn{{TurnNumber: 0}, {TurnNumber: 1}}}
	rec = Finalize(rec, "", time.Now())
	if len(rec.Turns) != 0 {
		t.Fatalf("turns = %d, want 0", len(rec.Turns))
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.rec.zst")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
