package game

import (
	"sort"

	"terrafront.io/internal/shard"
)

// PlayerExecution is the per-player maintenance pass: relation decay,
// territory-bound unit resolution, death cleanup, troop/gold accrual,
// alliance and embargo expiry, and the periodic cluster anti-enclave check.
// One instance is scheduled per player at spawn and stays active until the
// player dies.
type PlayerExecution struct {
	player *Player

	g        *Game
	lastCalc Tick
	active   bool
}

func (e *PlayerExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *PlayerExecution) IsActive() bool               { return e.active }

func (e *PlayerExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	// Stagger cluster recalculation by a hash of the player name so every
	// player does not recompute on the same tick.
	e.lastCalc = tick + Tick(shard.SimpleHash(e.player.name)%g.tuning.TicksPerClusterCalc)
}

func (e *PlayerExecution) Tick(tick Tick) {
	p := e.player
	tn := e.g.tuning

	if tn.RelationDecayInterval > 0 && tick%Tick(tn.RelationDecayInterval) == 0 {
		p.decayRelations()
	}

	// Territory-bound units whose tile changed hands must resolve this pass.
	for _, u := range p.Units() {
		if !u.typ.TerritoryBound() {
			continue
		}
		owner := e.g.gmap.Owner(u.tile)
		if owner == TerraNullius {
			e.g.deleteUnit(u)
			continue
		}
		if owner == p.smallID {
			continue
		}
		captor := e.g.playerBySmallID(owner)
		if u.typ == UnitDefensePost {
			u.level--
			if u.level <= 0 {
				e.g.deleteUnit(u)
				e.g.stats.UnitDestroyed(p.id, u.typ, tick)
			} else {
				captor.CaptureUnit(u)
			}
		} else {
			captor.CaptureUnit(u)
		}
	}

	if !p.IsAlive() {
		// Death cleanup: clear gold, remove everything that does not outlive
		// its owner, and retire this execution.
		p.RemoveGold(p.gold)
		for _, u := range p.Units() {
			if !u.typ.Persistent() {
				e.g.deleteUnit(u)
			}
		}
		e.g.stats.PlayerKilled(p.id, tick)
		e.active = false
		return
	}

	troopInc := (tn.Economy.TroopBaseRate + tn.Economy.TroopPerTile*float64(p.NumTilesOwned())) * p.TroopsMultiplier()
	p.AddTroops(troopInc)
	goldFromWorkers := tn.Economy.GoldBaseRate + tn.Economy.GoldPerTile*int64(p.NumTilesOwned())
	p.AddGold(goldFromWorkers)
	e.g.stats.GoldWork(p.id, goldFromWorkers)

	// Expiry sweeps. Copy the alliance slice: expiry mutates it.
	alliances := append([]*Alliance(nil), p.alliances...)
	for _, al := range alliances {
		if al.expiresAt <= tick {
			e.g.expireAlliance(al)
		}
	}
	for _, em := range append([]*Embargo(nil), p.embargoes...) {
		if em.temporary && tick-em.createdAt > Tick(tn.EmbargoDurationTicks) {
			p.StopEmbargo(em.target)
		}
	}

	if tick-e.lastCalc > Tick(tn.TicksPerClusterCalc) {
		if p.lastTileChange > e.lastCalc {
			e.lastCalc = tick
			e.removeClusters()
		}
	}
}

// removeClusters partitions the player's border into connected clusters and
// applies the anti-enclave rule: a cluster fully enclosed (by bounding box)
// within one hostile neighbor is annexed by that neighbor. The same applies
// to the largest cluster itself when one hostile player surrounds it.
func (e *PlayerExecution) removeClusters() {
	clusters := e.calculateClusters()
	if len(clusters) == 0 {
		return
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return minTile(clusters[i]) < minTile(clusters[j])
	})

	main := clusters[0]
	e.player.largestClusterBox = e.g.gmap.boundingBoxOf(main)
	e.player.hasLargestClusterBox = true
	if enclosing := e.surroundedBySamePlayer(main); enclosing != nil && !e.player.IsFriendly(enclosing) {
		e.removeCluster(main)
	}

	for _, cluster := range clusters[1:] {
		if e.isSurrounded(cluster) {
			e.removeCluster(cluster)
		}
	}
}

// surroundedBySamePlayer reports the single player enclosing the cluster, or
// nil. A cluster touching the map edge, a shore, or unowned land is never
// enclosed. Enclosure itself is the bounding-box inscription approximation.
func (e *PlayerExecution) surroundedBySamePlayer(cluster map[TileRef]struct{}) *Player {
	m := e.g.gmap
	enemies := map[SmallID]struct{}{}
	for _, t := range sortedTiles(cluster) {
		if m.IsShore(t) || m.OnEdge(t) {
			return nil
		}
		for _, n := range m.Neighbors(t) {
			if !m.HasOwner(n) {
				return nil
			}
			if owner := m.Owner(n); owner != e.player.smallID {
				enemies[owner] = struct{}{}
			}
		}
		if len(enemies) > 1 {
			return nil
		}
	}
	if len(enemies) != 1 {
		return nil
	}
	var enemyID SmallID
	for id := range enemies {
		enemyID = id
	}
	enemy := e.g.playerBySmallID(enemyID)
	enemyBox := m.boundingBoxOf(enemy.border)
	clusterBox := m.boundingBoxOf(cluster)
	if Inscribed(enemyBox, clusterBox) {
		return enemy
	}
	return nil
}

func (e *PlayerExecution) isSurrounded(cluster map[TileRef]struct{}) bool {
	m := e.g.gmap
	enemyTiles := map[TileRef]struct{}{}
	for _, t := range sortedTiles(cluster) {
		if m.IsShore(t) || m.OnEdge(t) {
			return false
		}
		for _, n := range m.Neighbors(t) {
			if owner := m.Owner(n); owner != TerraNullius && owner != e.player.smallID {
				enemyTiles[n] = struct{}{}
			}
		}
	}
	if len(enemyTiles) == 0 {
		return false
	}
	enemyBox := m.boundingBoxOf(enemyTiles)
	clusterBox := m.boundingBoxOf(cluster)
	return Inscribed(enemyBox, clusterBox)
}

func (e *PlayerExecution) removeCluster(cluster map[TileRef]struct{}) {
	// Earlier removeCluster calls this tick may have changed owners.
	for t := range cluster {
		if e.g.gmap.Owner(t) != e.player.smallID {
			return
		}
	}

	capturing := e.getCapturingPlayer(cluster)
	if capturing == nil {
		return
	}

	first := minTile(cluster)
	tiles := e.g.gmap.BFS(first, func(t TileRef) bool {
		return e.g.gmap.Owner(t) == e.player.smallID
	})

	if e.player.NumTilesOwned() == len(tiles) {
		e.g.conquerPlayer(capturing, e.player)
	}
	for _, t := range tiles {
		capturing.Conquer(t)
	}
}

// getCapturingPlayer picks the hostile neighbor with the largest in-flight
// attack against this player; with no attack in progress the cluster stays.
func (e *PlayerExecution) getCapturingPlayer(cluster map[TileRef]struct{}) *Player {
	m := e.g.gmap
	candidateIDs := map[SmallID]struct{}{}
	for _, t := range sortedTiles(cluster) {
		for _, n := range m.Neighbors(t) {
			if owner := m.Owner(n); owner != e.player.smallID && owner != TerraNullius {
				candidateIDs[owner] = struct{}{}
			}
		}
	}

	ids := make([]int, 0, len(candidateIDs))
	for id := range candidateIDs {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var largest *Player
	var largestTroops float64
	for _, id := range ids {
		neighbor := e.g.playerBySmallID(SmallID(id))
		if neighbor.IsFriendly(e.player) {
			continue
		}
		for _, attack := range neighbor.outgoingAttacks {
			if attack.target != e.player.smallID {
				continue
			}
			if attack.troops > largestTroops {
				largestTroops = attack.troops
				largest = neighbor
			}
		}
	}
	return largest
}

// calculateClusters partitions border tiles into 8-connected components.
func (e *PlayerExecution) calculateClusters() []map[TileRef]struct{} {
	border := e.player.border
	seen := map[TileRef]struct{}{}
	var clusters []map[TileRef]struct{}
	for _, tile := range sortedTiles(border) {
		if _, ok := seen[tile]; ok {
			continue
		}
		cluster := map[TileRef]struct{}{}
		queue := []TileRef{tile}
		seen[tile] = struct{}{}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cluster[cur] = struct{}{}
			for _, n := range e.g.gmap.NeighborsWithDiag(cur) {
				if _, isBorder := border[n]; !isBorder {
					continue
				}
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				queue = append(queue, n)
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func minTile(cluster map[TileRef]struct{}) TileRef {
	first := true
	min := 0
	for t := range cluster {
		if first || t < min {
			min = t
			first = false
		}
	}
	return min
}
