// Command replay re-simulates an archived game record and verifies every
// recorded hash sample against the deterministic re-run. A mismatch is
// reported and counted, never fatal: the point is to measure divergence,
// not to stop at the first one.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"terrafront.io/internal/persistence/record"
	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/game"
	"terrafront.io/internal/sim/tuning"
)

func main() {
	var (
		recPath    = flag.String("record", "", "path to .rec.zst game record")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in values)")
		everyTurn  = flag.Bool("hash_every_turn", false, "print the re-run hash for every turn, not just sampled ones")
		verbose    = flag.Bool("v", false, "log simulation warnings")
	)
	flag.Parse()

	if *recPath == "" {
		fmt.Fprintln(os.Stderr, "missing -record")
		os.Exit(2)
	}

	tn := tuning.Defaults()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		var err error
		tn, err = tuning.Load(tp)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	rec, err := record.Read(*recPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read record:", err)
		os.Exit(1)
	}

	fmt.Printf("record game=%s type=%s seed=%d players=%d turns=%d winner=%q\n",
		rec.Info.GameID, rec.Info.Config.GameType, rec.Info.Seed,
		len(rec.Info.Players), len(rec.Turns), rec.Info.Winner)

	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "[replay] ", log.LstdFlags)

	r, err := game.NewRunner(protocol.GameStartInfo{
		GameID:  rec.Info.GameID,
		Config:  rec.Info.Config,
		Seed:    rec.Info.Seed,
		Players: rec.Info.Players,
	}, tn, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init simulation:", err)
		os.Exit(1)
	}

	sampled, desyncs := 0, 0
	for _, turn := range rec.Turns {
		if err := r.ExecuteTurn(turn); err != nil {
			fmt.Fprintf(os.Stderr, "turn %d: %v\n", turn.TurnNumber, err)
			os.Exit(1)
		}
		h := r.Hash()
		if *everyTurn {
			fmt.Printf("turn %d hash=%s\n", turn.TurnNumber, h)
		}
		if turn.Hash == "" {
			continue
		}
		sampled++
		if h != turn.Hash {
			desyncs++
			fmt.Printf("DESYNC turn %d: recorded=%s rerun=%s\n", turn.TurnNumber, turn.Hash, h)
		}
	}

	fmt.Printf("replayed %d turns, %d hash samples, %d desyncs, final hash=%s\n",
		r.TurnsExecuted(), sampled, desyncs, r.Hash())
	if desyncs > 0 {
		os.Exit(3)
	}
}
