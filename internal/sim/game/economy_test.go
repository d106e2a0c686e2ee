package game

import "testing"

func ally(t *testing.T, g *Game, a, b *Player) {
	t.Helper()
	g.AddExecution(&AllianceRequestExecution{requestor: a, recipientID: b.ID()})
	g.AddExecution(&AllianceRequestExecution{requestor: b, recipientID: a.ID()})
	g.ExecuteNextTick()
	if !a.IsAlliedWith(b) {
		t.Fatal("alliance setup failed")
	}
}

func TestDonateGoldBetweenAllies(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)
	a.gold, b.gold = 900, 0

	g.AddExecution(&DonateGoldExecution{sender: a, recipientID: b.ID(), gold: 300})
	g.ExecuteNextTick()

	if a.gold != 600 || b.gold != 300 {
		t.Fatalf("gold after donation: a=%d b=%d", a.gold, b.gold)
	}
	if b.relationScore(a.smallID) != g.tuning.Alliance.DonationRelationGain {
		t.Fatalf("recipient relation = %d", b.relationScore(a.smallID))
	}
}

func TestDonateGoldDefaultsToThird(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)
	a.gold, b.gold = 900, 0

	g.AddExecution(&DonateGoldExecution{sender: a, recipientID: b.ID()})
	g.ExecuteNextTick()
	if a.gold != 600 || b.gold != 300 {
		t.Fatalf("gold after default donation: a=%d b=%d", a.gold, b.gold)
	}
}

func TestDonateGoldRequiresAlliance(t *testing.T) {
	g, a, b := twoNeighbors(t)
	a.gold, b.gold = 900, 0

	g.AddExecution(&DonateGoldExecution{sender: a, recipientID: b.ID(), gold: 300})
	g.ExecuteNextTick()
	if a.gold != 900 || b.gold != 0 {
		t.Fatalf("donation moved gold without alliance: a=%d b=%d", a.gold, b.gold)
	}
}

func TestDonateGoldUnknownRecipientIsNoop(t *testing.T) {
	g, a, _ := twoNeighbors(t)
	a.gold = 900
	g.AddExecution(&DonateGoldExecution{sender: a, recipientID: "ghost", gold: 300})
	g.ExecuteNextTick()
	if a.gold != 900 {
		t.Fatal("gold left sender on failed donation")
	}
	if g.ActiveExecutions() != 1 { // only the win check remains
		t.Fatalf("failed donation left executions active: %d", g.ActiveExecutions())
	}
}

func TestDonateGoldBlockedByEmbargo(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)
	b.StartEmbargo(a, false)
	a.gold, b.gold = 900, 0

	g.AddExecution(&DonateGoldExecution{sender: a, recipientID: b.ID(), gold: 300})
	g.ExecuteNextTick()
	if b.gold != 0 {
		t.Fatal("donation crossed an embargo")
	}
}

func TestDonateTroopsCapsAtRecipientMax(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)
	a.troops = 9000
	b.troops = g.MaxTroops(b) - 10

	g.AddExecution(&DonateTroopsExecution{sender: a, recipientID: b.ID(), troops: 3000})
	g.ExecuteNextTick()

	if a.troops != 6000 {
		t.Fatalf("sender troops = %v", a.troops)
	}
	if b.troops != g.MaxTroops(b) {
		t.Fatalf("recipient troops = %v, want cap %v", b.troops, g.MaxTroops(b))
	}
}

func TestTroopAccrualCappedAndPenalizedForTraitors(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)

	g.AddExecution(&BreakAllianceExecution{breaker: a, otherID: b.ID()})
	g.ExecuteNextTick()
	if !a.IsTraitor() {
		t.Fatal("setup failed")
	}

	a.troops, b.troops = 0, 0
	g.AddExecution(&PlayerExecution{player: a})
	g.AddExecution(&PlayerExecution{player: b})
	g.ExecuteNextTick()

	if a.troops >= b.troops {
		t.Fatalf("traitor accrued %v vs %v", a.troops, b.troops)
	}
	want := (g.tuning.Economy.TroopBaseRate + g.tuning.Economy.TroopPerTile*float64(b.NumTilesOwned()))
	if b.troops != want {
		t.Fatalf("normal accrual = %v, want %v", b.troops, want)
	}
}
