package game

import (
	"sort"

	"terrafront.io/internal/protocol"
	"terrafront.io/internal/shard"
	"terrafront.io/internal/sim/random"
)

// Emoji indexes into the client-side emoji table. The core only routes the
// numbers; rendering is someone else's problem.
var (
	emojiAssistAccept   = []int{0, 1, 2, 3}
	emojiRelationTooLow = []int{4, 5}
	emojiTargetMe       = []int{6, 7}
	emojiTargetAlly     = []int{8, 9}
)

// BotBehavior is the decision strategy for non-human players. It is
// stateless with respect to persisted game state; the only thing it carries
// across ticks is the current enemy, which goes stale after a timeout.
type BotBehavior struct {
	rand   *random.Rand
	g      *Game
	player *Player

	triggerRatio float64
	reserveRatio float64
	expandRatio  float64

	enemy        *Player
	enemyUpdated Tick
}

func NewBotBehavior(rand *random.Rand, g *Game, player *Player, triggerRatio, reserveRatio, expandRatio float64) *BotBehavior {
	return &BotBehavior{
		rand:         rand,
		g:            g,
		player:       player,
		triggerRatio: triggerRatio,
		reserveRatio: reserveRatio,
		expandRatio:  expandRatio,
	}
}

// HandleAllianceRequests answers every pending incoming request.
func (b *BotBehavior) HandleAllianceRequests() {
	for _, req := range b.player.IncomingAllianceRequests() {
		if shouldAcceptAllianceRequest(b.player, req) {
			req.Accept()
		} else {
			req.Reject()
		}
	}
}

func shouldAcceptAllianceRequest(player *Player, request *AllianceRequest) bool {
	requestor := request.Requestor()
	if player.RelationWith(requestor) < RelationNeutral {
		return false
	}
	if requestor.IsTraitor() {
		return false
	}
	if requestor.NumTilesOwned() > player.NumTilesOwned()*3 {
		// A much larger requestor is accepted unconditionally.
		return true
	}
	if len(requestor.Alliances()) >= 3 {
		return false
	}
	return true
}

// HandleAllianceExtensionRequests agrees to renew when the counterpart asked
// first. Nations at merely-Neutral standing flip a coin.
func (b *BotBehavior) HandleAllianceExtensionRequests() {
	for _, alliance := range b.player.Alliances() {
		if !alliance.OnlyOneAgreedToExtend() {
			continue
		}
		if alliance.agreed(b.player.smallID) {
			continue
		}
		other := alliance.Other(b.player)
		if b.player.ptype == protocol.PlayerTypeFakeHuman && b.player.RelationWith(other) == RelationNeutral {
			if !b.rand.Chance(2) {
				continue
			}
		}
		b.g.AddExecution(&AllianceExtensionExecution{player: b.player, otherID: other.id})
	}
}

func (b *BotBehavior) emoji(to *Player, emoji int) {
	if to.ptype != protocol.PlayerTypeHuman {
		return
	}
	b.g.AddExecution(&EmojiExecution{sender: b.player, recipientID: to.id, emoji: emoji})
}

func (b *BotBehavior) setNewEnemy(newEnemy *Player, force bool) {
	if newEnemy != nil && !force && !b.shouldAttack(newEnemy) {
		return
	}
	b.enemy = newEnemy
	b.enemyUpdated = b.g.tick
}

func (b *BotBehavior) shouldAttack(other *Player) bool {
	attack := b.attackChance(other)
	if attack && b.player.IsAlliedWith(other) {
		b.betray(other)
		return true
	}
	return attack
}

func (b *BotBehavior) betray(target *Player) {
	alliance := b.player.AllianceWith(target)
	if alliance == nil {
		return
	}
	b.player.BreakAlliance(alliance)
}

// attackChance: attacking an ally means betrayal and is rare; attacking a
// non-traitor human on easy/medium difficulty is discouraged to keep bots
// from piling on new players.
func (b *BotBehavior) attackChance(other *Player) bool {
	if b.player.IsAlliedWith(other) {
		if b.shouldDiscourageAttack(other) {
			return b.rand.Chance(200)
		}
		return b.rand.Chance(50)
	}
	if b.shouldDiscourageAttack(other) {
		return b.rand.Chance(4)
	}
	return true
}

func (b *BotBehavior) shouldDiscourageAttack(other *Player) bool {
	if other.IsTraitor() {
		return false
	}
	difficulty := b.g.cfg.Difficulty
	if difficulty == protocol.DifficultyHard || difficulty == protocol.DifficultyImpossible {
		return false
	}
	if other.ptype != protocol.PlayerTypeHuman {
		return false
	}
	return true
}

// ForgetOldEnemies clears an enemy the behavior has not refreshed recently.
func (b *BotBehavior) ForgetOldEnemies() {
	if b.g.tick-b.enemyUpdated > Tick(b.g.tuning.Bot.EnemyStalenessTicks) {
		b.enemy = nil
	}
}

func (b *BotBehavior) hasReserveRatioTroops() bool {
	return b.player.troops/b.g.MaxTroops(b.player) >= b.reserveRatio
}

func (b *BotBehavior) hasTriggerRatioTroops() bool {
	return b.player.troops/b.g.MaxTroops(b.player) >= b.triggerRatio
}

// checkIncomingAttacks retaliates against the largest current attack.
func (b *BotBehavior) checkIncomingAttacks() {
	var largest float64
	var attacker *Player
	for _, attack := range b.player.IncomingAttacks() {
		if attack.troops <= largest {
			continue
		}
		largest = attack.troops
		attacker = attack.Attacker()
	}
	if attacker != nil {
		b.setNewEnemy(attacker, true)
	}
}

func (b *BotBehavior) neighborTraitorToAttack() *Player {
	var traitors []*Player
	for _, n := range b.player.Neighbors() {
		if n.IsTraitor() {
			traitors = append(traitors, n)
		}
	}
	if len(traitors) == 0 {
		return nil
	}
	return random.Element(b.rand, traitors)
}

// AssistAllies reacts to allies' target orders: answer with a heckle when
// standing is too low or the target is off-limits, otherwise adopt the
// target.
func (b *BotBehavior) AssistAllies() {
	for _, al := range b.player.Alliances() {
		ally := al.Other(b.player)
		targets := ally.Targets()
		if len(targets) == 0 {
			continue
		}
		if b.player.RelationWith(ally) < RelationFriendly {
			b.emoji(ally, random.Element(b.rand, emojiRelationTooLow))
			continue
		}
		for _, target := range targets {
			if target == b.player {
				b.emoji(ally, random.Element(b.rand, emojiTargetMe))
				continue
			}
			if b.player.IsAlliedWith(target) {
				b.emoji(ally, random.Element(b.rand, emojiTargetAlly))
				continue
			}
			// Assisting costs standing; it resets as the alliance pays off.
			b.player.UpdateRelation(ally, -20)
			b.setNewEnemy(target, false)
			b.emoji(ally, random.Element(b.rand, emojiAssistAccept))
			return
		}
	}
}

// SelectEnemy picks a target for nation players, in priority order:
// husband resources, weakest-density neighboring bot, retaliation, the most
// hated player (coin flip, only if Hostile), the provided candidate list,
// then a uniformly random candidate.
func (b *BotBehavior) SelectEnemy(enemies []*Player) *Player {
	if b.enemy == nil {
		if !b.hasReserveRatioTroops() {
			return nil
		}
		if !b.hasTriggerRatioTroops() && !b.rand.Chance(10) {
			return nil
		}

		var lowestDensityBot *Player
		lowestDensity := 0.0
		for _, n := range b.player.Neighbors() {
			if n.ptype != protocol.PlayerTypeBot || n.NumTilesOwned() == 0 {
				continue
			}
			density := n.troops / float64(n.NumTilesOwned())
			if lowestDensityBot == nil || density < lowestDensity {
				lowestDensity = density
				lowestDensityBot = n
			}
		}
		if lowestDensityBot != nil {
			b.setNewEnemy(lowestDensityBot, false)
		}

		if b.enemy == nil {
			b.checkIncomingAttacks()
		}

		if b.enemy == nil && b.rand.Chance(2) {
			if relations := b.player.AllRelationsSorted(); len(relations) > 0 {
				mostHated := relations[0]
				if relationFromScore(mostHated.Score) == RelationHostile {
					b.setNewEnemy(mostHated.Player, false)
				}
			}
		}

		if b.enemy == nil && len(enemies) > 0 {
			b.setNewEnemy(enemies[0], false)
		}
		if b.enemy == nil && len(enemies) > 0 {
			b.setNewEnemy(random.Element(b.rand, enemies), false)
		}
	}
	return b.enemySanityCheck()
}

// SelectRandomEnemy picks a target for plain bots: a shuffled non-friendly
// neighbor, retaliation, then a neighboring traitor.
func (b *BotBehavior) SelectRandomEnemy() *Player {
	if b.enemy == nil {
		if !b.hasTriggerRatioTroops() {
			return nil
		}

		neighbors := b.player.Neighbors()
		random.Shuffle(b.rand, neighbors)
		for _, neighbor := range neighbors {
			if b.player.IsFriendly(neighbor) {
				continue
			}
			if neighbor.ptype == protocol.PlayerTypeFakeHuman && b.rand.Chance(2) {
				continue
			}
			b.setNewEnemy(neighbor, false)
		}

		if b.enemy == nil {
			b.checkIncomingAttacks()
		}

		if b.enemy == nil {
			if traitor := b.neighborTraitorToAttack(); traitor != nil {
				if !b.player.IsFriendly(traitor) && b.rand.Chance(3) {
					b.setNewEnemy(traitor, false)
				}
			}
		}
	}
	return b.enemySanityCheck()
}

func (b *BotBehavior) enemySanityCheck() *Player {
	if b.enemy != nil && b.player.IsFriendly(b.enemy) {
		b.enemy = nil
	}
	return b.enemy
}

// SendAttack commits everything above the reserve against target; nil means
// expansion into unclaimed land, which keeps a smaller reserve.
func (b *BotBehavior) SendAttack(target *Player) {
	if target != nil && b.player.IsFriendly(target) {
		return
	}
	reserveRatio := b.expandRatio
	if target != nil {
		reserveRatio = b.reserveRatio
	}
	targetTroops := b.g.MaxTroops(b.player) * reserveRatio
	troops := b.player.troops - targetTroops
	if troops < 1 {
		return
	}
	targetID := ""
	if target != nil {
		targetID = target.id
	}
	b.g.AddExecution(&AttackExecution{attacker: b.player, targetID: targetID, troops: troops})
}

// BotExecution drives one non-human player. It stays active for the
// player's lifetime and acts on a staggered interval so bot load spreads
// across ticks.
type BotExecution struct {
	player *Player

	g        *Game
	behavior *BotBehavior
	offset   Tick
	active   bool
}

func NewBotExecution(player *Player) *BotExecution {
	return &BotExecution{player: player}
}

func (e *BotExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *BotExecution) IsActive() bool               { return e.active }

func (e *BotExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
	// Each bot gets its own generator seeded from its identity: decisions
	// stay deterministic and independent of how many other bots exist.
	bt := g.tuning.Bot
	e.behavior = NewBotBehavior(
		random.New(int64(shard.SimpleHash(e.player.id))),
		g, e.player,
		bt.TriggerRatio, bt.ReserveRatio, bt.ExpandRatio,
	)
	e.offset = Tick(shard.SimpleHash(e.player.name) % g.tuning.Bot.ActionIntervalTicks)
}

func (e *BotExecution) Tick(tick Tick) {
	if !e.player.IsAlive() {
		e.active = false
		return
	}
	if tick%Tick(e.g.tuning.Bot.ActionIntervalTicks) != e.offset {
		return
	}

	b := e.behavior
	b.HandleAllianceRequests()
	b.ForgetOldEnemies()

	if e.player.ptype == protocol.PlayerTypeFakeHuman {
		b.HandleAllianceExtensionRequests()
		b.AssistAllies()
		if enemy := b.SelectEnemy(e.nationCandidates()); enemy != nil {
			b.SendAttack(enemy)
			return
		}
	} else {
		if enemy := b.SelectRandomEnemy(); enemy != nil {
			b.SendAttack(enemy)
			return
		}
	}

	// No enemy: expand into unclaimed land when there is any to take.
	if e.hasUnclaimedFrontier() {
		b.SendAttack(nil)
	}
}

// nationCandidates lists non-friendly neighbors weakest first.
func (e *BotExecution) nationCandidates() []*Player {
	var out []*Player
	for _, n := range e.player.Neighbors() {
		if !e.player.IsFriendly(n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].troops < out[j].troops })
	return out
}

func (e *BotExecution) hasUnclaimedFrontier() bool {
	m := e.g.gmap
	for _, t := range sortedTiles(e.player.border) {
		for _, n := range m.Neighbors(t) {
			if m.IsLand(n) && !m.HasOwner(n) {
				return true
			}
		}
	}
	return false
}
