package game

import (
	"fmt"
	"log"

	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/tuning"
)

// Runner drives a Game from a sealed turn stream: the client's local
// simulation, the replay verifier, and the tests all consume turns through
// it so they cannot disagree on ordering. Turn n is fully determined by turn
// n-1's resulting state plus its own intent list.
type Runner struct {
	game          *Game
	turnsExecuted int
}

// NewRunner builds the game exactly as every other instance of the same
// start info would: players in the recorded join order, then the configured
// bots, then one random-spawn execution per bot.
func NewRunner(info protocol.GameStartInfo, tn tuning.Tuning, logger *log.Logger) (*Runner, error) {
	g, err := New(info.Config, tn, info.Seed, logger)
	if err != nil {
		return nil, err
	}
	for _, ref := range info.Players {
		if _, err := g.AddPlayer(ref.ClientID, ref.Username, ref.PlayerType); err != nil {
			return nil, err
		}
	}
	for i := 0; i < info.Config.NumBots; i++ {
		id := fmt.Sprintf("bot_%d", i)
		p, err := g.AddPlayer(id, id, protocol.PlayerTypeBot)
		if err != nil {
			return nil, err
		}
		g.AddExecution(NewRandomSpawn(p))
	}
	return &Runner{game: g}, nil
}

func (r *Runner) Game() *Game { return r.game }

// ExecuteTurn applies one sealed turn. Turns must arrive in order with no
// gaps; anything else is a transport bug and fails loudly before any state
// is touched.
func (r *Runner) ExecuteTurn(turn protocol.Turn) error {
	if turn.TurnNumber != r.turnsExecuted {
		return fmt.Errorf("turn out of order: got %d, want %d", turn.TurnNumber, r.turnsExecuted)
	}
	for _, intent := range turn.Intents {
		exec, err := FromIntent(r.game, intent)
		if err != nil {
			// Adversarial or stale intents are dropped, never fatal.
			r.game.log.Printf("SECURITY: dropping intent: %v", err)
			continue
		}
		r.game.AddExecution(exec)
	}
	r.game.ExecuteNextTick()
	r.turnsExecuted++
	return nil
}

func (r *Runner) TurnsExecuted() int { return r.turnsExecuted }

// Hash is the post-turn state hash used for desync detection.
func (r *Runner) Hash() string { return r.game.Hash() }
