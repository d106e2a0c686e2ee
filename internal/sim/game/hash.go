package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"
)

// Hash computes the content hash of the full simulation state at the
// current tick. Everything that can influence future ticks is folded in —
// including the random generator's cursor — in a fixed serialization order,
// so two simulations that agree on the hash agree on all future behavior
// given the same intents.
func (g *Game) Hash() string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, &tmp, uint64(g.tick))
	writeU64(h, &tmp, g.rand.State())

	// Tile ownership in array order.
	for _, owner := range g.gmap.owners {
		writeU64(h, &tmp, uint64(owner))
	}

	// Players in arena order.
	for _, p := range g.players {
		writeU64(h, &tmp, uint64(p.smallID))
		h.Write([]byte{boolByte(p.spawned)})
		writeU64(h, &tmp, uint64(p.gold))
		writeU64(h, &tmp, math.Float64bits(p.troops))
		writeU64(h, &tmp, uint64(p.traitorUntil))
		writeU64(h, &tmp, uint64(p.lastTileChange))

		ids := make([]int, 0, len(p.relations))
		for id := range p.relations {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		writeU64(h, &tmp, uint64(len(ids)))
		for _, id := range ids {
			writeU64(h, &tmp, uint64(id))
			writeI64(h, &tmp, int64(p.relations[SmallID(id)]))
		}

		writeU64(h, &tmp, uint64(len(p.embargoes)))
		for _, e := range p.embargoes {
			writeU64(h, &tmp, uint64(e.target))
			writeU64(h, &tmp, uint64(e.createdAt))
			h.Write([]byte{boolByte(e.temporary)})
		}

		writeU64(h, &tmp, uint64(len(p.outgoingAttacks)))
		for _, a := range p.outgoingAttacks {
			writeU64(h, &tmp, uint64(a.target))
			writeU64(h, &tmp, math.Float64bits(a.troops))
		}
	}

	// Units in creation order.
	writeU64(h, &tmp, uint64(len(g.units)))
	for _, u := range g.units {
		writeU64(h, &tmp, uint64(u.id))
		h.Write([]byte(u.typ))
		writeU64(h, &tmp, uint64(u.owner))
		writeU64(h, &tmp, uint64(u.tile))
		writeU64(h, &tmp, uint64(u.level))
		h.Write([]byte{boolByte(u.active)})
		writeU64(h, &tmp, uint64(u.deleteAt))
	}

	// Alliances and pending requests in creation order.
	writeU64(h, &tmp, uint64(len(g.alliances)))
	for _, al := range g.alliances {
		writeU64(h, &tmp, uint64(al.a))
		writeU64(h, &tmp, uint64(al.b))
		writeU64(h, &tmp, uint64(al.expiresAt))
		h.Write([]byte{boolByte(al.agreedA), boolByte(al.agreedB)})
	}
	writeU64(h, &tmp, uint64(len(g.requests)))
	for _, r := range g.requests {
		writeU64(h, &tmp, uint64(r.requestor))
		writeU64(h, &tmp, uint64(r.recipient))
		writeU64(h, &tmp, uint64(r.createdAt))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeI64(h hash.Hash, tmp *[8]byte, v int64) {
	writeU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
