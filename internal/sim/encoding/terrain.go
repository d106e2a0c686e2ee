// Package encoding carries the compact wire form of terrain. A map is a
// land/water mask; run-length encoding makes even large maps a few hundred
// bytes in the game config, and the string form survives JSON untouched.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeTerrain encodes a land mask into base64(varint pairs). Pairs are
// (cell, run_len) repeated, where cell is 1 for land and 0 for water.
func EncodeTerrain(land []bool) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(land) {
		cell := uint64(0)
		if land[i] {
			cell = 1
		}
		run := 1
		for j := i + 1; j < len(land) && land[j] == land[i]; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], cell)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeTerrain decodes a mask and checks it covers exactly want cells, so a
// config whose terrain disagrees with its map size is rejected instead of
// silently truncated.
func DecodeTerrain(b64 string, want int) ([]bool, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("terrain not base64: %w", err)
	}
	out := make([]bool, 0, want)
	for i := 0; i < len(raw); {
		cell, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if cell > 1 {
			return nil, fmt.Errorf("bad terrain cell: %d", cell)
		}
		if len(out)+int(run) > want {
			return nil, fmt.Errorf("terrain larger than map: %d cells, want %d", len(out)+int(run), want)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, cell == 1)
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("terrain covers %d cells, want %d", len(out), want)
	}
	return out, nil
}
