package game

// AllianceRequestExecution creates a pending request, or short-circuits to
// acceptance when the recipient already has an outgoing request to the
// requestor (mutual-request auto-accept). It stays active until the request
// resolves, force-rejecting after the configured duration.
type AllianceRequestExecution struct {
	requestor   *Player
	recipientID string

	req    *AllianceRequest
	g      *Game
	active bool
}

func (e *AllianceRequestExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *AllianceRequestExecution) IsActive() bool               { return e.active }

func (e *AllianceRequestExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.recipientID) {
		g.log.Printf("AllianceRequestExecution recipient %s not found", e.recipientID)
		e.active = false
		return
	}
	recipient := g.Player(e.recipientID)

	if !e.requestor.CanSendAllianceRequest(recipient) {
		g.log.Printf("player %s cannot send alliance request to %s", e.requestor.id, recipient.id)
		e.active = false
		return
	}

	for _, incoming := range recipient.OutgoingAllianceRequests() {
		if incoming.recipient == e.requestor.smallID {
			// The recipient already asked us; accept theirs instead of
			// creating a mirror request.
			e.active = false
			incoming.Accept()
			return
		}
	}
	e.req = e.requestor.CreateAllianceRequest(recipient)
}

func (e *AllianceRequestExecution) Tick(tick Tick) {
	if e.req == nil {
		e.active = false
		return
	}
	if e.req.status != RequestPending {
		e.active = false
		return
	}
	if tick-e.req.createdAt > Tick(e.g.tuning.Alliance.RequestDurationTicks) {
		e.req.Reject()
		e.active = false
	}
}

// AllianceRequestReplyExecution resolves a pending incoming request.
type AllianceRequestReplyExecution struct {
	requestorID string
	recipient   *Player
	accept      bool

	req    *AllianceRequest
	g      *Game
	active bool
}

func (e *AllianceRequestReplyExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *AllianceRequestReplyExecution) IsActive() bool               { return e.active }

func (e *AllianceRequestReplyExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.requestorID) {
		g.log.Printf("AllianceRequestReplyExecution requestor %s not found", e.requestorID)
		e.active = false
		return
	}
	requestor := g.Player(e.requestorID)
	for _, r := range e.recipient.IncomingAllianceRequests() {
		if r.requestor == requestor.smallID {
			e.req = r
			return
		}
	}
	g.log.Printf("no pending alliance request from %s to %s", e.requestorID, e.recipient.id)
	e.active = false
}

func (e *AllianceRequestReplyExecution) Tick(tick Tick) {
	if e.accept {
		e.req.Requestor().UpdateRelation(e.recipient, 30)
		e.req.Accept()
	} else {
		e.req.Reject()
	}
	e.active = false
}

// BreakAllianceExecution dissolves an alliance deliberately, marking the
// breaker a traitor.
type BreakAllianceExecution struct {
	breaker *Player
	otherID string

	alliance *Alliance
	g        *Game
	active   bool
}

func (e *BreakAllianceExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *BreakAllianceExecution) IsActive() bool               { return e.active }

func (e *BreakAllianceExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.otherID) {
		g.log.Printf("BreakAllianceExecution other %s not found", e.otherID)
		e.active = false
		return
	}
	e.alliance = e.breaker.AllianceWith(g.Player(e.otherID))
	if e.alliance == nil {
		g.log.Printf("SECURITY: player %s breaking nonexistent alliance with %s", e.breaker.id, e.otherID)
		e.active = false
	}
}

func (e *BreakAllianceExecution) Tick(tick Tick) {
	e.breaker.BreakAlliance(e.alliance)
	e.active = false
}

// AllianceExtensionExecution records one side's agreement to extend; the
// alliance rolls over when both sides have agreed.
type AllianceExtensionExecution struct {
	player  *Player
	otherID string

	alliance *Alliance
	g        *Game
	active   bool
}

func (e *AllianceExtensionExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *AllianceExtensionExecution) IsActive() bool               { return e.active }

func (e *AllianceExtensionExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.otherID) {
		g.log.Printf("AllianceExtensionExecution other %s not found", e.otherID)
		e.active = false
		return
	}
	e.alliance = e.player.AllianceWith(g.Player(e.otherID))
	if e.alliance == nil {
		g.log.Printf("no alliance between %s and %s to extend", e.player.id, e.otherID)
		e.active = false
	}
}

func (e *AllianceExtensionExecution) Tick(tick Tick) {
	e.alliance.agreeToExtend(e.player.smallID)
	e.active = false
}
