// Package shard maps game identifiers to worker processes. The mapping is a
// pure function of the game ID, so any process can compute the owning worker
// without coordination; a worker simply rejects games it does not own.
package shard

import "fmt"

// SimpleHash is the 32-bit string hash (h = h*31 + c, truncated, absolute
// value) shared by every process that needs a stable per-name stagger or a
// shard index. Changing it invalidates every recorded game's worker mapping.
func SimpleHash(s string) int {
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	if h < 0 {
		h = -h
	}
	return int(h)
}

// WorkerIndex returns the index of the worker authoritative for gameID.
func WorkerIndex(gameID string, numWorkers int) int {
	if numWorkers <= 1 {
		return 0
	}
	return SimpleHash(gameID) % numWorkers
}

// WorkerPath returns the HTTP path prefix ("w3") of the owning worker.
func WorkerPath(gameID string, numWorkers int) string {
	return fmt.Sprintf("w%d", WorkerIndex(gameID, numWorkers))
}

// MismatchError is returned when a request reaches a worker that does not
// own the game. It is the sharding system's only consistency mechanism:
// there is no handoff and no rebalancing at runtime.
type MismatchError struct {
	GameID   string
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("game %s belongs to worker %d, this is worker %d", e.GameID, e.Expected, e.Actual)
}

// CheckOwner returns a MismatchError when workerID is not the owner of
// gameID, nil otherwise.
func CheckOwner(gameID string, numWorkers, workerID int) error {
	if expected := WorkerIndex(gameID, numWorkers); expected != workerID {
		return &MismatchError{GameID: gameID, Expected: expected, Actual: workerID}
	}
	return nil
}
