package game

// DonateGoldExecution transfers gold from sender to recipient. Single-shot:
// it deactivates after exactly one tick whether or not the transfer
// succeeded, and a failed transfer moves nothing.
type DonateGoldExecution struct {
	sender      *Player
	recipientID string
	gold        int64

	recipient *Player
	g         *Game
	active    bool
}

func (e *DonateGoldExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *DonateGoldExecution) IsActive() bool               { return e.active }

func (e *DonateGoldExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.recipientID) {
		g.log.Printf("DonateGoldExecution recipient %s not found", e.recipientID)
		e.active = false
		return
	}
	e.recipient = g.Player(e.recipientID)
	if e.gold == 0 {
		e.gold = e.sender.gold / 3
	}
}

func (e *DonateGoldExecution) Tick(tick Tick) {
	if e.sender.CanDonateGold(e.recipient) && e.sender.DonateGold(e.recipient, e.gold) {
		e.recipient.UpdateRelation(e.sender, e.g.tuning.Alliance.DonationRelationGain)
	} else {
		e.g.log.Printf("cannot send gold from %s to %s", e.sender.name, e.recipient.name)
	}
	e.active = false
}

// DonateTroopsExecution mirrors gold donation for troops; the default
// donation is a third of the sender's standing army.
type DonateTroopsExecution struct {
	sender      *Player
	recipientID string
	troops      float64

	recipient *Player
	g         *Game
	active    bool
}

func (e *DonateTroopsExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *DonateTroopsExecution) IsActive() bool               { return e.active }

func (e *DonateTroopsExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	if !g.HasPlayer(e.recipientID) {
		g.log.Printf("DonateTroopsExecution recipient %s not found", e.recipientID)
		e.active = false
		return
	}
	e.recipient = g.Player(e.recipientID)
	if e.troops == 0 {
		e.troops = e.sender.troops / 3
	}
}

func (e *DonateTroopsExecution) Tick(tick Tick) {
	if e.sender.CanDonateTroops(e.recipient) && e.sender.DonateTroops(e.recipient, e.troops) {
		e.recipient.UpdateRelation(e.sender, e.g.tuning.Alliance.DonationRelationGain/2)
	} else {
		e.g.log.Printf("cannot send troops from %s to %s", e.sender.name, e.recipient.name)
	}
	e.active = false
}
