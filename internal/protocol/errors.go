package protocol

// Error codes surfaced on the HTTP control plane and in ServerErrorMsg.
const (
	// Transport/schema validation.
	ErrBadMessage = "E_BAD_MESSAGE"
	ErrBadSchema  = "E_BAD_SCHEMA"

	// Routing.
	ErrWorkerMismatch = "E_WORKER_MISMATCH"
	ErrGameNotFound   = "E_GAME_NOT_FOUND"

	// Control plane.
	ErrUnauthorized     = "E_UNAUTHORIZED"
	ErrGameStarted      = "E_GAME_STARTED"
	ErrNotSingleplayer  = "E_NOT_SINGLEPLAYER"
	ErrPublicGameEdit   = "E_PUBLIC_GAME_EDIT"
	ErrMissingStartInfo = "E_MISSING_START_INFO"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadMessage:       {},
	ErrBadSchema:        {},
	ErrWorkerMismatch:   {},
	ErrGameNotFound:     {},
	ErrUnauthorized:     {},
	ErrGameStarted:      {},
	ErrNotSingleplayer:  {},
	ErrPublicGameEdit:   {},
	ErrMissingStartInfo: {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
