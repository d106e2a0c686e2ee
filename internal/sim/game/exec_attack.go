package game

import "sort"

// Troop cost of taking one tile.
const (
	attackCostPerTile      = 10.0
	expandCostPerTile      = 2.0
	attackRelationPenalty  = -80
	attackTilesPerCapacity = 100.0
)

// AttackExecution commits troops against a target player, or expands into
// unclaimed land when targetID is empty. Each tick it captures a
// troops-proportional number of frontier tiles in ascending tile order;
// leftover troops return home when the frontier closes.
type AttackExecution struct {
	attacker *Player
	targetID string // "" = terra nullius
	troops   float64

	g      *Game
	target *Player // nil for terra nullius
	record *Attack
	active bool
}

func (e *AttackExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *AttackExecution) IsActive() bool               { return e.active }

func (e *AttackExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true

	if !e.attacker.IsAlive() {
		e.active = false
		return
	}
	if e.targetID != "" {
		if !g.HasPlayer(e.targetID) {
			g.log.Printf("AttackExecution target %s not found", e.targetID)
			e.active = false
			return
		}
		e.target = g.Player(e.targetID)
		if e.target == e.attacker || !e.target.IsAlive() {
			e.active = false
			return
		}
		if e.attacker.IsAlliedWith(e.target) {
			g.log.Printf("SECURITY: player %s attacking ally %s", e.attacker.id, e.target.id)
			e.active = false
			return
		}
	}

	if e.troops <= 0 {
		e.troops = e.attacker.troops / 2
	}
	e.troops = e.attacker.RemoveTroops(e.troops)
	if e.troops < 1 {
		e.active = false
		return
	}

	e.record = &Attack{g: g, attacker: e.attacker.smallID, troops: e.troops}
	e.attacker.outgoingAttacks = append(e.attacker.outgoingAttacks, e.record)
	if e.target != nil {
		e.record.target = e.target.smallID
		e.target.incomingAttacks = append(e.target.incomingAttacks, e.record)
		e.target.UpdateRelation(e.attacker, attackRelationPenalty)
	}
}

func (e *AttackExecution) Tick(tick Tick) {
	if !e.attacker.IsAlive() {
		e.finish(false)
		return
	}
	if e.target != nil && !e.target.IsAlive() {
		e.finish(true)
		return
	}

	costPerTile := attackCostPerTile
	if e.target == nil {
		costPerTile = expandCostPerTile
	}

	capacity := int(e.record.troops / attackTilesPerCapacity)
	if capacity < 1 {
		capacity = 1
	}

	frontier := e.frontier()
	if len(frontier) == 0 {
		// Frontier closed: remaining troops march home.
		e.finish(true)
		return
	}

	for _, t := range frontier {
		if capacity == 0 || e.record.troops < costPerTile {
			break
		}
		e.attacker.Conquer(t)
		e.record.troops -= costPerTile
		capacity--
	}

	if e.record.troops < costPerTile {
		e.finish(false)
	}
}

// frontier lists capturable tiles adjacent to the attacker's territory, in
// ascending tile order for determinism.
func (e *AttackExecution) frontier() []TileRef {
	m := e.g.gmap
	seen := map[TileRef]struct{}{}
	for bt := range e.attacker.border {
		for _, n := range m.Neighbors(bt) {
			if !m.IsLand(n) {
				continue
			}
			owner := m.Owner(n)
			if e.target == nil {
				if owner == TerraNullius {
					seen[n] = struct{}{}
				}
			} else if owner == e.target.smallID {
				seen[n] = struct{}{}
			}
		}
	}
	out := make([]TileRef, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

func (e *AttackExecution) finish(refund bool) {
	if refund && e.record != nil && e.record.troops > 0 {
		e.attacker.AddTroops(e.record.troops)
	}
	if e.record != nil {
		e.record.troops = 0
		removeAttack(&e.attacker.outgoingAttacks, e.record)
		if e.target != nil {
			removeAttack(&e.target.incomingAttacks, e.record)
		}
	}
	e.active = false
}

func removeAttack(list *[]*Attack, a *Attack) {
	kept := (*list)[:0]
	for _, x := range *list {
		if x != a {
			kept = append(kept, x)
		}
	}
	*list = kept
}
