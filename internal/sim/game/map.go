package game

import "sort"

// TileRef indexes a tile as y*width+x. Tiles are referenced by value
// everywhere so the map itself stays the single owner of tile state.
type TileRef = int

// SmallID is a compact per-game player index. 0 is terra nullius; real
// players start at 1 and are assigned in join order.
type SmallID = uint16

const TerraNullius SmallID = 0

// GameMap is a rectangular grid of tiles with an ownership array. Owner
// state lives here, in arena order, so iterating tiles is deterministic by
// construction.
type GameMap struct {
	width, height int
	land          []bool
	owners        []SmallID
	numLand       int
}

// NewMap returns an all-land map. Terrain loading is an external concern;
// the simulation only needs land/water and ownership.
func NewMap(width, height int) *GameMap {
	m := &GameMap{
		width:  width,
		height: height,
		land:   make([]bool, width*height),
		owners: make([]SmallID, width*height),
	}
	for i := range m.land {
		m.land[i] = true
	}
	m.numLand = width * height
	return m
}

func (m *GameMap) Width() int  { return m.width }
func (m *GameMap) Height() int { return m.height }

func (m *GameMap) Ref(x, y int) TileRef { return y*m.width + x }
func (m *GameMap) X(t TileRef) int      { return t % m.width }
func (m *GameMap) Y(t TileRef) int      { return t / m.width }

func (m *GameMap) InBounds(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}

func (m *GameMap) IsLand(t TileRef) bool { return t >= 0 && t < len(m.land) && m.land[t] }

// SetWater carves water into the map. Only valid before the game starts.
func (m *GameMap) SetWater(t TileRef) {
	if m.land[t] {
		m.land[t] = false
		m.numLand--
	}
}

func (m *GameMap) NumLandTiles() int { return m.numLand }

func (m *GameMap) Owner(t TileRef) SmallID { return m.owners[t] }
func (m *GameMap) HasOwner(t TileRef) bool { return m.owners[t] != TerraNullius }

func (m *GameMap) setOwner(t TileRef, id SmallID) { m.owners[t] = id }

func (m *GameMap) OnEdge(t TileRef) bool {
	x, y := m.X(t), m.Y(t)
	return x == 0 || y == 0 || x == m.width-1 || y == m.height-1
}

// IsShore reports whether t is a land tile adjacent to water.
func (m *GameMap) IsShore(t TileRef) bool {
	if !m.IsLand(t) {
		return false
	}
	for _, n := range m.Neighbors(t) {
		if !m.IsLand(n) {
			return true
		}
	}
	return false
}

// Neighbors returns the in-bounds 4-neighborhood in a fixed order
// (up, left, right, down).
func (m *GameMap) Neighbors(t TileRef) []TileRef {
	x, y := m.X(t), m.Y(t)
	out := make([]TileRef, 0, 4)
	if y > 0 {
		out = append(out, t-m.width)
	}
	if x > 0 {
		out = append(out, t-1)
	}
	if x < m.width-1 {
		out = append(out, t+1)
	}
	if y < m.height-1 {
		out = append(out, t+m.width)
	}
	return out
}

// NeighborsWithDiag returns the in-bounds 8-neighborhood in row-major order.
// Cluster connectivity uses the 8-neighborhood so diagonal border chains
// count as one cluster.
func (m *GameMap) NeighborsWithDiag(t TileRef) []TileRef {
	x, y := m.X(t), m.Y(t)
	out := make([]TileRef, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if m.InBounds(x+dx, y+dy) {
				out = append(out, m.Ref(x+dx, y+dy))
			}
		}
	}
	return out
}

// BFS walks the connected component containing start, following 4-neighbors
// that satisfy keep. Returned tiles are in visit order, which is
// deterministic because Neighbors has a fixed order.
func (m *GameMap) BFS(start TileRef, keep func(TileRef) bool) []TileRef {
	if !keep(start) {
		return nil
	}
	seen := map[TileRef]struct{}{start: {}}
	queue := []TileRef{start}
	var out []TileRef
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, n := range m.Neighbors(cur) {
			if _, ok := seen[n]; ok {
				continue
			}
			if keep(n) {
				seen[n] = struct{}{}
				queue = append(queue, n)
			}
		}
	}
	return out
}

// BoundingBox is an inclusive tile-coordinate rectangle.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY int
}

func (m *GameMap) boundingBoxOf(tiles map[TileRef]struct{}) BoundingBox {
	box := BoundingBox{MinX: m.width, MinY: m.height, MaxX: -1, MaxY: -1}
	for t := range tiles {
		x, y := m.X(t), m.Y(t)
		if x < box.MinX {
			box.MinX = x
		}
		if y < box.MinY {
			box.MinY = y
		}
		if x > box.MaxX {
			box.MaxX = x
		}
		if y > box.MaxY {
			box.MaxY = y
		}
	}
	return box
}

// Inscribed reports whether inner lies fully within outer. This is a
// bounding-box approximation of enclosure, not exact topology; recorded
// games depend on it, so it stays an approximation.
func Inscribed(outer, inner BoundingBox) bool {
	return outer.MinX <= inner.MinX && outer.MinY <= inner.MinY &&
		outer.MaxX >= inner.MaxX && outer.MaxY >= inner.MaxY
}

// sortedTiles returns the keys of a tile set in ascending ref order. Any
// walk over a tile set that can influence game state goes through this.
func sortedTiles(tiles map[TileRef]struct{}) []TileRef {
	out := make([]TileRef, 0, len(tiles))
	for t := range tiles {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}
