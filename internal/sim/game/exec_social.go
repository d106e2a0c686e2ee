package game

// EmbargoExecution starts or stops a trade embargo. Single-shot.
type EmbargoExecution struct {
	player   *Player
	targetID string
	stop     bool

	target *Player
	active bool
}

func (e *EmbargoExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *EmbargoExecution) IsActive() bool               { return e.active }

func (e *EmbargoExecution) Init(g *Game, tick Tick) {
	e.active = true
	if !g.HasPlayer(e.targetID) {
		g.log.Printf("EmbargoExecution target %s not found", e.targetID)
		e.active = false
		return
	}
	e.target = g.Player(e.targetID)
	if e.target == e.player {
		g.log.Printf("SECURITY: player %s embargoing self", e.player.id)
		e.active = false
	}
}

func (e *EmbargoExecution) Tick(tick Tick) {
	if e.stop {
		e.player.StopEmbargo(e.target.smallID)
	} else {
		e.player.StartEmbargo(e.target, false)
	}
	e.active = false
}

// EmojiExecution forwards a cosmetic emoji to another player. The effect is
// telemetry-only; it exists in the core because bots send emoji through the
// same intent path as everything else.
type EmojiExecution struct {
	sender      *Player
	recipientID string
	emoji       int

	recipient *Player
	g         *Game
	active    bool
}

func (e *EmojiExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *EmojiExecution) IsActive() bool               { return e.active }

func (e *EmojiExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.recipientID) {
		g.log.Printf("EmojiExecution recipient %s not found", e.recipientID)
		e.active = false
		return
	}
	e.recipient = g.Player(e.recipientID)
}

func (e *EmojiExecution) Tick(tick Tick) {
	e.g.stats.EmojiSent(e.sender.id, e.recipient.id, e.emoji)
	e.active = false
}

// TargetPlayerExecution marks a player as a target so allies can assist.
type TargetPlayerExecution struct {
	player   *Player
	targetID string

	target *Player
	active bool
}

func (e *TargetPlayerExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *TargetPlayerExecution) IsActive() bool               { return e.active }

func (e *TargetPlayerExecution) Init(g *Game, tick Tick) {
	e.active = true
	if !g.HasPlayer(e.targetID) {
		g.log.Printf("TargetPlayerExecution target %s not found", e.targetID)
		e.active = false
		return
	}
	e.target = g.Player(e.targetID)
	if e.target == e.player || e.player.IsFriendly(e.target) {
		g.log.Printf("SECURITY: player %s targeting self or ally %s", e.player.id, e.targetID)
		e.active = false
	}
}

func (e *TargetPlayerExecution) Tick(tick Tick) {
	e.player.RecordTarget(e.target)
	e.target.UpdateRelation(e.player, -40)
	e.active = false
}
