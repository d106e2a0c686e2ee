package game

// DeleteUnitExecution voluntarily removes one of the player's own units.
// Deletion is deferred: the unit is marked immediately but only removed once
// the overdue timer elapses, so renders and captures resolve first.
type DeleteUnitExecution struct {
	player *Player
	unitID int

	unit   *Unit
	g      *Game
	active bool
}

func (e *DeleteUnitExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *DeleteUnitExecution) IsActive() bool               { return e.active }

func (e *DeleteUnitExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true

	unit := e.player.UnitByID(e.unitID)
	if unit == nil {
		g.log.Printf("SECURITY: unit %d not found or not owned by player %s", e.unitID, e.player.id)
		e.active = false
		return
	}
	if !unit.active {
		g.log.Printf("SECURITY: unit %d is not active", e.unitID)
		e.active = false
		return
	}
	if g.gmap.Owner(unit.tile) != e.player.smallID {
		g.log.Printf("SECURITY: unit %d is not on player's territory", e.unitID)
		e.active = false
		return
	}
	if !g.gmap.IsLand(unit.tile) {
		g.log.Printf("SECURITY: unit %d is not on land", e.unitID)
		e.active = false
		return
	}
	if g.InSpawnPhase() {
		g.log.Printf("SECURITY: cannot delete units during spawn phase")
		e.active = false
		return
	}
	if !e.player.CanDeleteUnit() {
		g.log.Printf("SECURITY: delete unit cooldown not expired for player %s", e.player.id)
		e.active = false
		return
	}

	e.unit = unit
	e.player.RecordDeleteUnit()
	unit.markForDeletion(tick + Tick(g.tuning.Units.DeleteOverdueTicks))
}

func (e *DeleteUnitExecution) Tick(tick Tick) {
	if e.unit == nil {
		e.active = false
		return
	}
	if !e.unit.active {
		e.active = false
		return
	}
	if e.unit.overdueDeletion(tick) {
		e.g.deleteUnit(e.unit)
		e.g.stats.UnitDestroyed(e.player.id, e.unit.typ, tick)
		e.active = false
	}
}

// ConstructionExecution builds a unit on owned territory: gold is deducted
// up front, the unit exists immediately but stays inactive until the build
// countdown finishes.
type ConstructionExecution struct {
	player   *Player
	unitType UnitType
	tile     TileRef

	unit   *Unit
	doneAt Tick
	g      *Game
	active bool
}

func (e *ConstructionExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *ConstructionExecution) IsActive() bool               { return e.active }

func (e *ConstructionExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true

	cost, buildable := g.tuning.Units.Costs[string(e.unitType)]
	if !buildable {
		g.log.Printf("SECURITY: player %s building unbuildable unit type %q", e.player.id, e.unitType)
		e.active = false
		return
	}
	if !e.player.IsAlive() {
		e.active = false
		return
	}
	if g.gmap.Owner(e.tile) != e.player.smallID {
		g.log.Printf("SECURITY: player %s building on unowned tile %d", e.player.id, e.tile)
		e.active = false
		return
	}
	if e.player.gold < cost {
		g.log.Printf("player %s cannot afford %s (%d < %d)", e.player.id, e.unitType, e.player.gold, cost)
		e.active = false
		return
	}

	e.player.RemoveGold(cost)
	e.unit = g.addUnit(e.player, e.unitType, e.tile, false)
	e.doneAt = tick + Tick(g.tuning.Units.ConstructionTicks)
}

func (e *ConstructionExecution) Tick(tick Tick) {
	// Territory lost mid-build: the site is abandoned, gold is not refunded.
	if e.g.gmap.Owner(e.tile) != e.player.smallID {
		e.g.deleteUnit(e.unit)
		e.active = false
		return
	}
	if tick >= e.doneAt {
		e.unit.active = true
		e.unit.constructedAt = tick
		e.active = false
	}
}
