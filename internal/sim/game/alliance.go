package game

// RequestStatus is the lifecycle of an AllianceRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// AllianceRequest is a one-directional pending offer. It resolves to
// accepted either explicitly or implicitly when the recipient independently
// requests alliance with the requestor; an unanswered request is force
// rejected after the configured duration by its owning execution.
type AllianceRequest struct {
	g         *Game
	requestor SmallID
	recipient SmallID
	createdAt Tick
	status    RequestStatus
}

func (r *AllianceRequest) Requestor() *Player    { return r.g.playerBySmallID(r.requestor) }
func (r *AllianceRequest) Recipient() *Player    { return r.g.playerBySmallID(r.recipient) }
func (r *AllianceRequest) CreatedAt() Tick       { return r.createdAt }
func (r *AllianceRequest) Status() RequestStatus { return r.status }

func (r *AllianceRequest) Accept() {
	if r.status != RequestPending {
		return
	}
	r.status = RequestAccepted
	r.g.acceptAllianceRequest(r)
}

func (r *AllianceRequest) Reject() {
	if r.status != RequestPending {
		return
	}
	r.status = RequestRejected
	r.g.removeAllianceRequest(r)
}

// Alliance is a bidirectional relationship with a fixed expiry. Each side
// can independently agree to extend; if both agree before expiry the
// alliance rolls over for another full duration.
type Alliance struct {
	g         *Game
	a, b      SmallID
	createdAt Tick
	expiresAt Tick

	agreedA bool
	agreedB bool
}

func (al *Alliance) ExpiresAt() Tick { return al.expiresAt }

// Other returns the counterpart of p in this alliance.
func (al *Alliance) Other(p *Player) *Player {
	if p.smallID == al.a {
		return al.g.playerBySmallID(al.b)
	}
	return al.g.playerBySmallID(al.a)
}

func (al *Alliance) includes(id SmallID) bool { return al.a == id || al.b == id }

func (al *Alliance) agreeToExtend(id SmallID) {
	if al.a == id {
		al.agreedA = true
	}
	if al.b == id {
		al.agreedB = true
	}
	if al.agreedA && al.agreedB {
		al.expiresAt += Tick(al.g.tuning.Alliance.DurationTicks)
		al.agreedA = false
		al.agreedB = false
	}
}

// OnlyOneAgreedToExtend reports the state a bot reacts to: the counterpart
// asked for renewal and this side has not answered.
func (al *Alliance) OnlyOneAgreedToExtend() bool {
	return al.agreedA != al.agreedB
}

func (al *Alliance) agreed(id SmallID) bool {
	if al.a == id {
		return al.agreedA
	}
	return al.agreedB
}

// Embargo blocks donations between two players. Temporary embargoes (set
// automatically against traitors) are swept after the configured duration.
type Embargo struct {
	target    SmallID
	createdAt Tick
	temporary bool
}

// Attack is the live record of troops committed against a target. The
// attacking execution owns the record; players only index it for retaliation
// and annexation decisions.
type Attack struct {
	g        *Game
	attacker SmallID
	target   SmallID // TerraNullius for expansion into unclaimed land
	troops   float64
}

func (a *Attack) Attacker() *Player { return a.g.playerBySmallID(a.attacker) }

// Target returns nil for expansion into unclaimed land.
func (a *Attack) Target() *Player { return a.g.playerBySmallID(a.target) }

func (a *Attack) Troops() float64 { return a.troops }
