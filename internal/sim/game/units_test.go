package game

import (
	"testing"

	"terrafront.io/internal/protocol"
)

func TestDefensePostLosesLevelOnCapture(t *testing.T) {
	g, a, b := twoNeighbors(t)
	site := g.Map().Ref(3, 4) // owned by a

	post := g.addUnit(a, UnitDefensePost, site, true)
	post.level = 2

	b.Conquer(site)
	g.AddExecution(&PlayerExecution{player: a})
	g.ExecuteNextTick()

	if post.Owner() != b.SmallID() {
		t.Fatalf("post owner = %d, want %d", post.Owner(), b.SmallID())
	}
	if post.Level() != 1 {
		t.Fatalf("post level = %d, want 1", post.Level())
	}

	// Second capture at level 1 destroys it.
	a.Conquer(site)
	g.AddExecution(&PlayerExecution{player: b})
	g.ExecuteNextTick()
	if post.active {
		t.Fatal("level-1 post survived a second capture")
	}
}

func TestNonDefenseUnitTransfersAtFullLevel(t *testing.T) {
	g, a, b := twoNeighbors(t)
	site := g.Map().Ref(3, 4)

	city := g.addUnit(a, UnitCity, site, true)
	city.level = 3

	b.Conquer(site)
	g.AddExecution(&PlayerExecution{player: a})
	g.ExecuteNextTick()

	if city.Owner() != b.SmallID() {
		t.Fatal("city did not transfer")
	}
	if city.Level() != 3 {
		t.Fatalf("city level = %d, want 3 unchanged", city.Level())
	}
}

func TestConstructionDeductsGoldAndActivatesLater(t *testing.T) {
	g, a, _ := twoNeighbors(t)
	site := g.Map().Ref(3, 4)
	a.gold = 5000
	cost := g.tuning.Units.Costs[string(UnitCity)]

	g.AddExecution(&ConstructionExecution{player: a, unitType: UnitCity, tile: site})
	g.ExecuteNextTick()

	if a.gold != 5000-cost {
		t.Fatalf("gold = %d, want %d", a.gold, 5000-cost)
	}
	units := a.Units()
	if len(units) != 0 {
		t.Fatal("unit active before construction finished")
	}

	for i := 0; i < g.tuning.Units.ConstructionTicks; i++ {
		g.ExecuteNextTick()
	}
	units = a.Units()
	if len(units) != 1 || units[0].Type() != UnitCity {
		t.Fatalf("units after construction = %v", units)
	}
}

func TestConstructionOnLostTileAbandonsWithoutRefund(t *testing.T) {
	g, a, b := twoNeighbors(t)
	site := g.Map().Ref(3, 4)
	a.gold = 5000
	cost := g.tuning.Units.Costs[string(UnitCity)]

	g.AddExecution(&ConstructionExecution{player: a, unitType: UnitCity, tile: site})
	g.ExecuteNextTick()
	b.Conquer(site)
	g.ExecuteNextTick()

	if a.gold != 5000-cost {
		t.Fatal("abandoned construction refunded gold")
	}
	if len(a.Units())+len(b.Units()) != 0 {
		t.Fatal("abandoned construction left a unit behind")
	}
}

func TestConstructionRejectsUnbuildableType(t *testing.T) {
	g, a, _ := twoNeighbors(t)
	a.gold = 1 << 30
	g.AddExecution(&ConstructionExecution{player: a, unitType: UnitAtomBomb, tile: g.Map().Ref(3, 4)})
	g.ExecuteNextTick()
	if a.gold != 1<<30 {
		t.Fatal("gold deducted for unbuildable type")
	}
}

func TestDeleteUnitIsDeferred(t *testing.T) {
	g, a, _ := twoNeighbors(t)
	u := g.addUnit(a, UnitCity, g.Map().Ref(3, 4), true)

	g.AddExecution(&DeleteUnitExecution{player: a, unitID: u.ID()})
	g.ExecuteNextTick()
	if !u.active {
		t.Fatal("unit removed before overdue timer")
	}
	for i := 0; i <= g.tuning.Units.DeleteOverdueTicks; i++ {
		g.ExecuteNextTick()
	}
	if u.active {
		return
	}
	t.Fatal("unit not removed after overdue timer")
}

func TestDeleteUnitCooldown(t *testing.T) {
	g, a, _ := twoNeighbors(t)
	u1 := g.addUnit(a, UnitCity, g.Map().Ref(3, 4), true)
	u2 := g.addUnit(a, UnitCity, g.Map().Ref(4, 4), true)

	g.ExecuteNextTick() // move past tick 0 so the cooldown timestamp is set
	g.AddExecution(&DeleteUnitExecution{player: a, unitID: u1.ID()})
	g.ExecuteNextTick()
	g.AddExecution(&DeleteUnitExecution{player: a, unitID: u2.ID()})
	for i := 0; i <= g.tuning.Units.DeleteOverdueTicks; i++ {
		g.ExecuteNextTick()
	}
	if u2.deleteAt != 0 {
		t.Fatal("second delete accepted inside cooldown")
	}
}

func TestPlayerDeathClearsGoldAndUnits(t *testing.T) {
	g := newTestGame(t, 16, 16)
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, row(g, 4, 2, 3)...)
	b := addSpawnedPlayer(t, g, "b", protocol.PlayerTypeHuman, row(g, 5, 2, 5)...)
	city := g.addUnit(a, UnitCity, g.Map().Ref(2, 4), true)
	ship := g.addUnit(a, UnitWarship, g.Map().Ref(10, 10), true)

	g.AddExecution(&PlayerExecution{player: a})
	for _, tile := range []TileRef{g.Map().Ref(2, 4), g.Map().Ref(3, 4)} {
		b.Conquer(tile)
	}
	g.ExecuteNextTick()

	if a.IsAlive() {
		t.Fatal("player with zero tiles still alive")
	}
	if a.Gold() != 0 {
		t.Fatalf("dead player keeps %d gold", a.Gold())
	}
	// The city sat on conquered ground, so capture resolves before death.
	if city.Owner() != b.SmallID() {
		t.Fatal("city on conquered tile was not captured")
	}
	if ship.active {
		t.Fatal("dead player's warship survived")
	}
}

func TestWaterTileNeverCounted(t *testing.T) {
	g := newTestGame(t, 8, 8)
	land := g.Map().NumLandTiles()
	g.Map().SetWater(g.Map().Ref(3, 3))
	if g.Map().NumLandTiles() != land-1 {
		t.Fatal("SetWater did not shrink land count")
	}
	if g.Map().IsLand(g.Map().Ref(3, 3)) {
		t.Fatal("water tile still land")
	}
}
