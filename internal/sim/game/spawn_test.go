package game

import (
	"testing"

	"terrafront.io/internal/protocol"
)

func spawnPhaseGame(t *testing.T) *Game {
	t.Helper()
	tn := testTuning()
	tn.SpawnPhaseTurns = 10
	g, err := New(testConfig(16, 16), tn, 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSpawnClaimsDiamond(t *testing.T) {
	g := spawnPhaseGame(t)
	p, err := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	if err != nil {
		t.Fatal(err)
	}
	g.AddExecution(&SpawnExecution{player: p, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()

	if !p.spawned {
		t.Fatal("player did not spawn")
	}
	// Full diamond of radius 2: 13 tiles.
	if p.NumTilesOwned() != 13 {
		t.Fatalf("tiles claimed = %d, want 13", p.NumTilesOwned())
	}
	for _, tile := range []TileRef{g.Map().Ref(8, 8), g.Map().Ref(8, 6), g.Map().Ref(10, 8)} {
		if g.Map().Owner(tile) != p.SmallID() {
			t.Fatalf("tile %d not claimed", tile)
		}
	}
	if g.Map().Owner(g.Map().Ref(10, 10)) != TerraNullius {
		t.Fatal("claimed outside the diamond")
	}
}

func TestSpawnDiamondClippedAtMapEdge(t *testing.T) {
	g := spawnPhaseGame(t)
	p, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	g.AddExecution(&SpawnExecution{player: p, tile: g.Map().Ref(0, 0)})
	g.ExecuteNextTick()

	// Quarter diamond at a corner: 6 tiles.
	if p.NumTilesOwned() != 6 {
		t.Fatalf("tiles claimed at corner = %d, want 6", p.NumTilesOwned())
	}
}

func TestSpawnSkipsOwnedTiles(t *testing.T) {
	g := spawnPhaseGame(t)
	first, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	second, _ := g.AddPlayer("c2", "bob", protocol.PlayerTypeHuman)

	g.AddExecution(&SpawnExecution{player: first, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()
	g.AddExecution(&SpawnExecution{player: second, tile: g.Map().Ref(11, 8)})
	g.ExecuteNextTick()

	if !second.spawned {
		t.Fatal("second player did not spawn")
	}
	// (10,8) and (9,8) belong to the first spawn's diamond and stay put.
	if g.Map().Owner(g.Map().Ref(10, 8)) != first.SmallID() {
		t.Fatal("later spawn stole an owned tile")
	}
	if second.NumTilesOwned() >= 13 {
		t.Fatal("overlapping spawn claimed a full diamond")
	}
}

func TestSpawnOnOwnedCenterRejected(t *testing.T) {
	g := spawnPhaseGame(t)
	first, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	second, _ := g.AddPlayer("c2", "bob", protocol.PlayerTypeHuman)

	g.AddExecution(&SpawnExecution{player: first, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()
	g.AddExecution(&SpawnExecution{player: second, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()

	if second.spawned {
		t.Fatal("spawned on an owned tile")
	}
}

func TestSpawnRejectedAfterSpawnPhase(t *testing.T) {
	g := spawnPhaseGame(t)
	p, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	for i := 0; i < 10; i++ {
		g.ExecuteNextTick()
	}
	g.AddExecution(&SpawnExecution{player: p, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()
	if p.spawned {
		t.Fatal("spawned after the spawn phase closed")
	}
}

func TestDoubleSpawnRejected(t *testing.T) {
	g := spawnPhaseGame(t)
	p, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
	g.AddExecution(&SpawnExecution{player: p, tile: g.Map().Ref(8, 8)})
	g.ExecuteNextTick()
	before := p.NumTilesOwned()

	g.AddExecution(&SpawnExecution{player: p, tile: g.Map().Ref(2, 2)})
	g.ExecuteNextTick()
	if p.NumTilesOwned() != before {
		t.Fatal("second spawn claimed tiles")
	}
}

func TestRandomSpawnIsReproducible(t *testing.T) {
	place := func() TileRef {
		g := spawnPhaseGame(t)
		p, _ := g.AddPlayer("c1", "alice", protocol.PlayerTypeHuman)
		g.AddExecution(NewRandomSpawn(p))
		g.ExecuteNextTick()
		if !p.spawned {
			t.Fatal("random spawn failed on an empty map")
		}
		tiles := sortedTiles(p.tiles)
		return tiles[0]
	}
	if place() != place() {
		t.Fatal("random spawn differs between identically seeded games")
	}
}

func TestSpawnSchedulesBotExecution(t *testing.T) {
	g := spawnPhaseGame(t)
	p, _ := g.AddPlayer("b1", "bot_1", protocol.PlayerTypeBot)
	g.AddExecution(NewRandomSpawn(p))
	g.ExecuteNextTick()

	// Spawn retires itself but leaves the player and bot drivers staged.
	// They activate once the spawn phase ends.
	for g.InSpawnPhase() {
		g.ExecuteNextTick()
	}
	g.ExecuteNextTick()
	// WinCheck + PlayerExecution + BotExecution.
	if got := g.ActiveExecutions(); got != 3 {
		t.Fatalf("active executions after spawn phase = %d, want 3", got)
	}
}
