package game

import "sort"

// Relation levels derived from the continuous score.
type Relation int

const (
	RelationHostile Relation = iota
	RelationDistrustful
	RelationNeutral
	RelationFriendly
)

const (
	relationMin = -100
	relationMax = 100
)

func relationFromScore(score int) Relation {
	switch {
	case score <= -50:
		return RelationHostile
	case score < 0:
		return RelationDistrustful
	case score < 50:
		return RelationNeutral
	default:
		return RelationFriendly
	}
}

// Player owns territory, units, the economy, and every relationship edge.
// All mutation happens on the tick loop goroutine; collaborators must not
// retain references across tick boundaries.
type Player struct {
	g *Game

	id      string // client/bot identifier, stable across the game
	smallID SmallID
	name    string
	ptype   string // protocol.PlayerType*

	spawned bool

	tiles  map[TileRef]struct{}
	border map[TileRef]struct{}

	gold   int64
	troops float64

	relations map[SmallID]int

	alliances []*Alliance
	embargoes []*Embargo

	outgoingAttacks []*Attack
	incomingAttacks []*Attack

	targets []targetOrder

	traitorUntil Tick

	lastTileChange       Tick
	lastDeleteUnit       Tick
	lastAllianceRequest  map[SmallID]Tick
	largestClusterBox    BoundingBox
	hasLargestClusterBox bool
}

type targetOrder struct {
	target  SmallID
	created Tick
}

func (p *Player) ID() string       { return p.id }
func (p *Player) SmallID() SmallID { return p.smallID }
func (p *Player) Name() string     { return p.name }
func (p *Player) Type() string     { return p.ptype }
func (p *Player) Gold() int64      { return p.gold }
func (p *Player) Troops() float64  { return p.troops }

// IsAlive: a player lives exactly as long as it holds territory. Before
// spawning a player is pending, not dead.
func (p *Player) IsAlive() bool { return p.spawned && len(p.tiles) > 0 }

func (p *Player) NumTilesOwned() int                { return len(p.tiles) }
func (p *Player) BorderTiles() map[TileRef]struct{} { return p.border }

// --- territory ---

// Conquer takes ownership of t, relinquishing it from any previous owner,
// and maintains both players' border sets.
func (p *Player) Conquer(t TileRef) {
	m := p.g.gmap
	if !m.IsLand(t) {
		return
	}
	if prev := m.Owner(t); prev != TerraNullius {
		if prev == p.smallID {
			return
		}
		p.g.playerBySmallID(prev).relinquish(t)
	}
	m.setOwner(t, p.smallID)
	p.tiles[t] = struct{}{}
	p.lastTileChange = p.g.tick
	p.refreshBorderAround(t)
}

func (p *Player) relinquish(t TileRef) {
	delete(p.tiles, t)
	delete(p.border, t)
	p.lastTileChange = p.g.tick
	p.refreshBorderAround(t)
}

// refreshBorderAround recomputes border membership for t and its neighbors,
// for every player involved.
func (p *Player) refreshBorderAround(t TileRef) {
	m := p.g.gmap
	refresh := func(tile TileRef) {
		owner := m.Owner(tile)
		if owner == TerraNullius {
			return
		}
		pl := p.g.playerBySmallID(owner)
		if pl.isBorderTile(tile) {
			pl.border[tile] = struct{}{}
		} else {
			delete(pl.border, tile)
		}
	}
	refresh(t)
	for _, n := range m.Neighbors(t) {
		refresh(n)
	}
}

func (p *Player) isBorderTile(t TileRef) bool {
	m := p.g.gmap
	if m.Owner(t) != p.smallID {
		return false
	}
	if m.OnEdge(t) {
		return true
	}
	for _, n := range m.Neighbors(t) {
		if m.Owner(n) != p.smallID {
			return true
		}
	}
	return false
}

// Neighbors returns adjacent players in ascending SmallID order. The fixed
// order matters: bot decisions iterate this.
func (p *Player) Neighbors() []*Player {
	seen := map[SmallID]struct{}{}
	m := p.g.gmap
	for t := range p.border {
		for _, n := range m.Neighbors(t) {
			owner := m.Owner(n)
			if owner != TerraNullius && owner != p.smallID {
				seen[owner] = struct{}{}
			}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.g.playerBySmallID(SmallID(id)))
	}
	return out
}

func (p *Player) LastTileChange() Tick { return p.lastTileChange }

func (p *Player) LargestClusterBox() (BoundingBox, bool) {
	return p.largestClusterBox, p.hasLargestClusterBox
}

// --- economy ---

func (p *Player) AddGold(amount int64) { p.gold += amount }

func (p *Player) RemoveGold(amount int64) int64 {
	if amount > p.gold {
		amount = p.gold
	}
	p.gold -= amount
	return amount
}

func (p *Player) AddTroops(amount float64) {
	p.troops += amount
	if max := p.g.MaxTroops(p); p.troops > max {
		p.troops = max
	}
}

func (p *Player) RemoveTroops(amount float64) float64 {
	if amount > p.troops {
		amount = p.troops
	}
	p.troops -= amount
	return amount
}

// CanDonateGold gates donations: both sides alive, distinct, allied, and no
// embargo in either direction.
func (p *Player) CanDonateGold(recipient *Player) bool {
	if recipient == nil || recipient == p {
		return false
	}
	if !p.IsAlive() || !recipient.IsAlive() {
		return false
	}
	if !p.IsAlliedWith(recipient) {
		return false
	}
	return !p.hasEmbargoAgainst(recipient.smallID) && !recipient.hasEmbargoAgainst(p.smallID)
}

func (p *Player) DonateGold(recipient *Player, amount int64) bool {
	if amount <= 0 || amount > p.gold {
		return false
	}
	p.gold -= amount
	recipient.AddGold(amount)
	return true
}

func (p *Player) CanDonateTroops(recipient *Player) bool {
	return p.CanDonateGold(recipient)
}

func (p *Player) DonateTroops(recipient *Player, amount float64) bool {
	if amount <= 0 || amount > p.troops {
		return false
	}
	p.troops -= amount
	recipient.AddTroops(amount)
	return true
}

// --- relations ---

func (p *Player) relationScore(other SmallID) int { return p.relations[other] }

func (p *Player) RelationWith(other *Player) Relation {
	return relationFromScore(p.relations[other.smallID])
}

func (p *Player) UpdateRelation(other *Player, delta int) {
	score := p.relations[other.smallID] + delta
	if score > relationMax {
		score = relationMax
	}
	if score < relationMin {
		score = relationMin
	}
	if score == 0 {
		delete(p.relations, other.smallID)
		return
	}
	p.relations[other.smallID] = score
}

// decayRelations walks scores one step toward neutral. Keys are sorted so
// the (value-neutral) mutation order is still reproducible.
func (p *Player) decayRelations() {
	ids := make([]int, 0, len(p.relations))
	for id := range p.relations {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		sid := SmallID(id)
		score := p.relations[sid]
		switch {
		case score > 0:
			score--
		case score < 0:
			score++
		}
		if score == 0 {
			delete(p.relations, sid)
		} else {
			p.relations[sid] = score
		}
	}
}

// RelationEntry pairs a player with this player's score toward them.
type RelationEntry struct {
	Player *Player
	Score  int
}

// AllRelationsSorted returns relations most-hated first. Ties break on
// SmallID so the order is total.
func (p *Player) AllRelationsSorted() []RelationEntry {
	out := make([]RelationEntry, 0, len(p.relations))
	for id, score := range p.relations {
		out = append(out, RelationEntry{Player: p.g.playerBySmallID(id), Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Player.smallID < out[j].Player.smallID
	})
	return out
}

// --- alliances ---

func (p *Player) Alliances() []*Alliance { return p.alliances }

func (p *Player) IsAlliedWith(other *Player) bool { return p.AllianceWith(other) != nil }

// IsFriendly is alliance membership; the game has no team mode.
func (p *Player) IsFriendly(other *Player) bool { return p.IsAlliedWith(other) }

func (p *Player) AllianceWith(other *Player) *Alliance {
	if other == nil {
		return nil
	}
	for _, al := range p.alliances {
		if al.includes(other.smallID) {
			return al
		}
	}
	return nil
}

// CanSendAllianceRequest enforces the request rate limit and rejects
// requests that cannot possibly succeed.
func (p *Player) CanSendAllianceRequest(recipient *Player) bool {
	if recipient == nil || recipient == p {
		return false
	}
	if !p.IsAlive() || !recipient.IsAlive() {
		return false
	}
	if p.IsAlliedWith(recipient) {
		return false
	}
	for _, r := range p.OutgoingAllianceRequests() {
		if r.recipient == recipient.smallID {
			return false
		}
	}
	if last, ok := p.lastAllianceRequest[recipient.smallID]; ok {
		if p.g.tick-last < Tick(p.g.tuning.Alliance.RequestCooldownTicks) {
			return false
		}
	}
	return true
}

func (p *Player) CreateAllianceRequest(recipient *Player) *AllianceRequest {
	p.lastAllianceRequest[recipient.smallID] = p.g.tick
	return p.g.createAllianceRequest(p, recipient)
}

func (p *Player) IncomingAllianceRequests() []*AllianceRequest {
	return p.g.allianceRequestsFor(p.smallID, false)
}

func (p *Player) OutgoingAllianceRequests() []*AllianceRequest {
	return p.g.allianceRequestsFor(p.smallID, true)
}

// BreakAlliance dissolves the alliance and marks this player a traitor. The
// betrayed side automatically embargoes the traitor temporarily.
func (p *Player) BreakAlliance(al *Alliance) {
	other := al.Other(p)
	p.g.removeAlliance(al)
	p.markTraitor()
	other.UpdateRelation(p, relationMin)
	if !other.hasEmbargoAgainst(p.smallID) {
		other.embargoes = append(other.embargoes, &Embargo{
			target:    p.smallID,
			createdAt: p.g.tick,
			temporary: true,
		})
	}
}

func (p *Player) markTraitor() {
	p.traitorUntil = p.g.tick + Tick(p.g.tuning.TraitorDurationTicks)
}

func (p *Player) IsTraitor() bool { return p.traitorUntil > p.g.tick }

// TroopsMultiplier is the traitor output penalty; 1 when in good standing.
func (p *Player) TroopsMultiplier() float64 {
	if p.IsTraitor() {
		return p.g.tuning.Economy.TraitorTroopPenalty
	}
	return 1
}

// --- embargoes ---

func (p *Player) Embargoes() []*Embargo { return p.embargoes }

func (p *Player) hasEmbargoAgainst(target SmallID) bool {
	for _, e := range p.embargoes {
		if e.target == target {
			return true
		}
	}
	return false
}

func (p *Player) StartEmbargo(target *Player, temporary bool) {
	if target == nil || p.hasEmbargoAgainst(target.smallID) {
		return
	}
	p.embargoes = append(p.embargoes, &Embargo{target: target.smallID, createdAt: p.g.tick, temporary: temporary})
}

func (p *Player) StopEmbargo(target SmallID) {
	kept := p.embargoes[:0]
	for _, e := range p.embargoes {
		if e.target != target {
			kept = append(kept, e)
		}
	}
	p.embargoes = kept
}

// --- attacks ---

func (p *Player) OutgoingAttacks() []*Attack { return p.outgoingAttacks }
func (p *Player) IncomingAttacks() []*Attack { return p.incomingAttacks }

// --- targets ---

// RecordTarget notes a target-player order so allies can assist.
func (p *Player) RecordTarget(target *Player) {
	p.targets = append(p.targets, targetOrder{target: target.smallID, created: p.g.tick})
}

// Targets returns active target orders, oldest first. Orders expire with the
// same staleness window as bot enemies.
func (p *Player) Targets() []*Player {
	ttl := Tick(p.g.tuning.Bot.EnemyStalenessTicks)
	kept := p.targets[:0]
	var out []*Player
	for _, t := range p.targets {
		if p.g.tick-t.created > ttl {
			continue
		}
		kept = append(kept, t)
		out = append(out, p.g.playerBySmallID(t.target))
	}
	p.targets = kept
	return out
}

// --- units ---

// Units returns this player's active units in ascending unit ID order.
func (p *Player) Units() []*Unit {
	var out []*Unit
	for _, u := range p.g.units {
		if u.owner == p.smallID && u.active {
			out = append(out, u)
		}
	}
	return out
}

func (p *Player) UnitByID(id int) *Unit {
	for _, u := range p.Units() {
		if u.id == id {
			return u
		}
	}
	return nil
}

// CaptureUnit transfers ownership at unchanged level.
func (p *Player) CaptureUnit(u *Unit) { u.owner = p.smallID }

func (p *Player) CanDeleteUnit() bool {
	if p.lastDeleteUnit == 0 {
		return true
	}
	return p.g.tick-p.lastDeleteUnit >= Tick(p.g.tuning.Units.DeleteCooldownTicks)
}

func (p *Player) RecordDeleteUnit() { p.lastDeleteUnit = p.g.tick }
