package game

// UnitType enumerates every buildable or spawnable structure and vehicle.
type UnitType string

const (
	UnitCity         UnitType = "City"
	UnitPort         UnitType = "Port"
	UnitFactory      UnitType = "Factory"
	UnitDefensePost  UnitType = "DefensePost"
	UnitMissileSilo  UnitType = "MissileSilo"
	UnitSAMLauncher  UnitType = "SAMLauncher"
	UnitWarship      UnitType = "Warship"
	UnitAtomBomb     UnitType = "AtomBomb"
	UnitHydrogenBomb UnitType = "HydrogenBomb"
	UnitMIRV         UnitType = "MIRV"
	UnitMIRVWarhead  UnitType = "MIRVWarhead"
)

// TerritoryBound reports whether a unit type follows tile ownership. A
// territory-bound unit whose tile changes hands must be resolved within one
// maintenance pass: DefensePosts lose a level per hostile capture, everything
// else transfers outright.
func (t UnitType) TerritoryBound() bool {
	switch t {
	case UnitWarship, UnitAtomBomb, UnitHydrogenBomb, UnitMIRV, UnitMIRVWarhead:
		return false
	}
	return true
}

// Persistent units survive their owner's death (in-flight ordnance keeps
// flying); everything else is removed when the player dies.
func (t UnitType) Persistent() bool {
	switch t {
	case UnitAtomBomb, UnitHydrogenBomb, UnitMIRV, UnitMIRVWarhead:
		return true
	}
	return false
}

type Unit struct {
	id    int
	typ   UnitType
	owner SmallID
	tile  TileRef
	level int

	active bool

	// Deferred voluntary deletion: set by DeleteUnitExecution, resolved when
	// the overdue tick passes.
	deleteAt Tick

	// Construction countdown; the unit activates when the builder execution
	// finishes.
	constructedAt Tick
}

func (u *Unit) ID() int        { return u.id }
func (u *Unit) Type() UnitType { return u.typ }
func (u *Unit) Owner() SmallID { return u.owner }
func (u *Unit) Tile() TileRef  { return u.tile }
func (u *Unit) Level() int     { return u.level }
func (u *Unit) IsActive() bool { return u.active }

func (u *Unit) markForDeletion(overdueAt Tick) { u.deleteAt = overdueAt }
func (u *Unit) markedForDeletion() bool        { return u.deleteAt > 0 }
func (u *Unit) overdueDeletion(now Tick) bool  { return u.markedForDeletion() && now >= u.deleteAt }
