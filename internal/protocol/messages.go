package protocol

// Intent kinds. The set is closed: the simulation dispatches on Kind through
// a fixed table, and unknown kinds are rejected at the transport boundary.
const (
	IntentSpawn             = "spawn"
	IntentAttack            = "attack"
	IntentBuildUnit         = "build_unit"
	IntentDonateGold        = "donate_gold"
	IntentDonateTroops      = "donate_troops"
	IntentAllianceRequest   = "alliance_request"
	IntentAllianceReply     = "alliance_reply"
	IntentAllianceExtension = "alliance_extension"
	IntentBreakAlliance     = "break_alliance"
	IntentEmbargo           = "embargo"
	IntentEmoji             = "emoji"
	IntentDeleteUnit        = "delete_unit"
	IntentTargetPlayer      = "target_player"
)

// Intent is an immutable, player-attributable request. It never mutates
// state directly; the simulation turns it into an Execution at the tick it
// was scheduled into.
type Intent struct {
	Kind     string `json:"kind"`
	ClientID string `json:"clientID"`

	// Target player, for kinds that have one.
	Target string `json:"target,omitempty"`

	// attack / donate amounts. Zero means "use the default".
	Troops int64 `json:"troops,omitempty"`
	Gold   int64 `json:"gold,omitempty"`

	// spawn / build_unit placement.
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	UnitType string `json:"unitType,omitempty"` // build_unit
	UnitID   int    `json:"unitID,omitempty"`   // delete_unit
	Accept   bool   `json:"accept,omitempty"`   // alliance_reply
	Stop     bool   `json:"stop,omitempty"`     // embargo
	Emoji    int    `json:"emoji,omitempty"`    // emoji
}

// Turn is the sealed batch of intents applied at one tick. Hash is only set
// on archived turns carrying a periodic sample.
type Turn struct {
	TurnNumber int      `json:"turnNumber"`
	Intents    []Intent `json:"intents"`
	Hash       string   `json:"hash,omitempty"`
}

// Game types.
const (
	GameTypeSingleplayer = "Singleplayer"
	GameTypePrivate      = "Private"
	GameTypePublic       = "Public"
)

// Difficulties.
const (
	DifficultyEasy       = "Easy"
	DifficultyMedium     = "Medium"
	DifficultyHard       = "Hard"
	DifficultyImpossible = "Impossible"
)

// Player types.
const (
	PlayerTypeHuman     = "Human"
	PlayerTypeBot       = "Bot"
	PlayerTypeFakeHuman = "FakeHuman"
)

// GameConfig is the per-game configuration, editable only before start.
type GameConfig struct {
	GameType   string `json:"gameType"`
	Difficulty string `json:"difficulty"`
	MaxPlayers int    `json:"maxPlayers"`
	NumBots    int    `json:"bots"`
	MapWidth   int    `json:"mapWidth"`
	MapHeight  int    `json:"mapHeight"`

	// Terrain is the run-length encoded land/water mask for the map, empty
	// for all-land maps. It is part of the config so every client carves the
	// identical coastline.
	Terrain string `json:"terrain,omitempty"`
}

// PlayerRef identifies one participant in the start info and the archive.
type PlayerRef struct {
	ClientID   string `json:"clientID"`
	Username   string `json:"username"`
	PlayerType string `json:"playerType"`
}

// GameStartInfo is everything a client needs to run the exact same
// simulation: config, seed, and the fixed player join order.
type GameStartInfo struct {
	GameID  string      `json:"gameID"`
	Config  GameConfig  `json:"config"`
	Seed    int64       `json:"seed"`
	Players []PlayerRef `json:"players"`
}

// Client -> server messages.

type ClientJoinMsg struct {
	Type     string `json:"type"`
	GameID   string `json:"gameID"`
	Token    string `json:"token"`
	ClientID string `json:"clientID"`
	Username string `json:"username"`
	LastTurn int    `json:"lastTurn"`
}

type ClientIntentMsg struct {
	Type   string `json:"type"`
	Intent Intent `json:"intent"`
}

type ClientHashMsg struct {
	Type       string `json:"type"`
	TurnNumber int    `json:"turnNumber"`
	Hash       string `json:"hash"`
}

type ClientWinnerMsg struct {
	Type            string                 `json:"type"`
	Winner          string                 `json:"winner"`
	AllPlayersStats map[string]PlayerStats `json:"allPlayersStats"`
}

// PlayerStats is a write-only sink filled by clients at game end.
type PlayerStats struct {
	TilesOwned int   `json:"tilesOwned"`
	Gold       int64 `json:"gold"`
	Troops     int64 `json:"troops"`
}

// Server -> client messages.

type ServerStartMsg struct {
	Type          string        `json:"type"`
	GameStartInfo GameStartInfo `json:"gameStartInfo"`
	Turns         []Turn        `json:"turns"`
}

type ServerTurnMsg struct {
	Type string `json:"type"`
	Turn Turn   `json:"turn"`
}

type ServerDesyncMsg struct {
	Type                   string `json:"type"`
	Turn                   int    `json:"turn"`
	CorrectHash            string `json:"correctHash"`
	ClientsWithCorrectHash int    `json:"clientsWithCorrectHash"`
	TotalActiveClients     int    `json:"totalActiveClients"`
	YourHash               string `json:"yourHash"`
}

type ServerErrorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// GameRecord is the archival format: enough to replay the game and verify
// the periodic hash samples.
type GameRecord struct {
	Info  GameInfo `json:"info"`
	Turns []Turn   `json:"turns"`
}

type GameInfo struct {
	GameID    string      `json:"gameID"`
	Config    GameConfig  `json:"config"`
	Seed      int64       `json:"seed"`
	Players   []PlayerRef `json:"players"`
	StartedAt int64       `json:"startedAt"`
	EndedAt   int64       `json:"endedAt"`
	Winner    string      `json:"winner,omitempty"`
}
