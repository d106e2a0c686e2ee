package protocol

import (
	"encoding/json"
	"testing"
)

func TestClientMessageSchema(t *testing.T) {
	valid := []string{
		`{"type":"ping"}`,
		`{"type":"join","gameID":"g1","clientID":"c1","token":"","username":"anon","lastTurn":0}`,
		`{"type":"hash","turnNumber":100,"hash":"deadbeef"}`,
		`{"type":"intent","intent":{"kind":"attack","clientID":"c1","target":"p2","troops":100}}`,
		`{"type":"intent","intent":{"kind":"alliance_reply","clientID":"c1","target":"p2","accept":true}}`,
		`{"type":"winner","winner":"c1","allPlayersStats":{}}`,
	}
	for _, s := range valid {
		if err := ValidateClientMessage([]byte(s)); err != nil {
			t.Errorf("rejected valid message %s: %v", s, err)
		}
	}

	invalid := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"join","clientID":"c1"}`,
		`{"type":"hash","turnNumber":-1,"hash":"x"}`,
		`{"type":"intent","intent":{"kind":"nuke_everything","clientID":"c1"}}`,
		`{"type":"intent","intent":{"kind":"attack"}}`,
	}
	for _, s := range invalid {
		if err := ValidateClientMessage([]byte(s)); err == nil {
			t.Errorf("accepted invalid message %s", s)
		}
	}
}

func TestGameConfigSchema(t *testing.T) {
	cfg := GameConfig{
		GameType:   GameTypePrivate,
		Difficulty: DifficultyMedium,
		MaxPlayers: 8,
		NumBots:    10,
		MapWidth:   64,
		MapHeight:  64,
	}
	b, _ := json.Marshal(cfg)
	if err := ValidateGameConfig(b); err != nil {
		t.Fatalf("rejected valid config: %v", err)
	}

	if err := ValidateGameConfig([]byte(`{"gameType":"Ranked","difficulty":"Medium","maxPlayers":8,"mapWidth":64,"mapHeight":64}`)); err == nil {
		t.Fatal("accepted unknown game type")
	}
	if err := ValidateGameConfig([]byte(`{"gameType":"Private"}`)); err == nil {
		t.Fatal("accepted config missing required fields")
	}
}

func TestGameRecordSchema(t *testing.T) {
	rec := GameRecord{
		Info: GameInfo{
			GameID:    "g1",
			Config:    GameConfig{GameType: GameTypeSingleplayer, Difficulty: DifficultyEasy, MaxPlayers: 1, MapWidth: 32, MapHeight: 32},
			Seed:      42,
			Players:   []PlayerRef{{ClientID: "c1", Username: "solo", PlayerType: PlayerTypeHuman}},
			StartedAt: 1000,
			EndedAt:   2000,
		},
		Turns: []Turn{{TurnNumber: 0, Intents: []Intent{}}},
	}
	b, _ := json.Marshal(rec)
	if err := ValidateGameRecord(b); err != nil {
		t.Fatalf("rejected valid record: %v", err)
	}

	if err := ValidateGameRecord([]byte(`{"turns":[]}`)); err == nil {
		t.Fatal("accepted record without info")
	}
}

func TestKnownCodes(t *testing.T) {
	for _, c := range []string{ErrBadMessage, ErrWorkerMismatch, ErrNotSingleplayer, ""} {
		if !IsKnownCode(c) {
			t.Errorf("code %q should be known", c)
		}
	}
	if IsKnownCode("E_MADE_UP") {
		t.Error("unknown code accepted")
	}
}
