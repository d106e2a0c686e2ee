// Package tuning holds every balance constant the simulation consumes.
// Values are loaded once from tuning.yaml and passed around immutably; two
// simulations of the same game must run with identical tuning or their
// hashes will diverge.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TurnIntervalMs  int `yaml:"turn_interval_ms"`
	SpawnPhaseTurns int `yaml:"spawn_phase_turns"`

	Alliance AllianceTuning `yaml:"alliance"`
	Economy  EconomyTuning  `yaml:"economy"`
	Units    UnitTuning     `yaml:"units"`
	Bot      BotTuning      `yaml:"bot"`

	TicksPerClusterCalc    int `yaml:"ticks_per_cluster_calc"`
	RelationDecayInterval  int `yaml:"relation_decay_interval"`
	TraitorDurationTicks   int `yaml:"traitor_duration_ticks"`
	EmbargoDurationTicks   int `yaml:"embargo_duration_ticks"`
	WinCheckIntervalTicks  int `yaml:"win_check_interval_ticks"`
	WinThresholdPercent    int `yaml:"win_threshold_percent"`
	HashSampleIntervalTurn int `yaml:"hash_sample_interval_turns"`
}

type AllianceTuning struct {
	DurationTicks        int `yaml:"duration_ticks"`
	RequestDurationTicks int `yaml:"request_duration_ticks"`
	RequestCooldownTicks int `yaml:"request_cooldown_ticks"`
	DonationRelationGain int `yaml:"donation_relation_gain"`
}

type EconomyTuning struct {
	StartGold        int64   `yaml:"start_gold"`
	StartTroops      int64   `yaml:"start_troops"`
	GoldBaseRate     int64   `yaml:"gold_base_rate"`
	GoldPerTile      int64   `yaml:"gold_per_tile"`
	TroopBaseRate    float64 `yaml:"troop_base_rate"`
	TroopPerTile     float64 `yaml:"troop_per_tile"`
	MaxTroopsBase    float64 `yaml:"max_troops_base"`
	MaxTroopsPerTile float64 `yaml:"max_troops_per_tile"`
	// Troop output multiplier applied while a player is flagged traitor.
	TraitorTroopPenalty float64 `yaml:"traitor_troop_penalty"`
}

type UnitTuning struct {
	// Cost in gold per unit type name; unlisted types cannot be built.
	Costs map[string]int64 `yaml:"costs"`

	DeleteCooldownTicks int `yaml:"delete_cooldown_ticks"`
	DeleteOverdueTicks  int `yaml:"delete_overdue_ticks"`
	ConstructionTicks   int `yaml:"construction_ticks"`
}

type BotTuning struct {
	ActionIntervalTicks int     `yaml:"action_interval_ticks"`
	EnemyStalenessTicks int     `yaml:"enemy_staleness_ticks"`
	TriggerRatio        float64 `yaml:"trigger_ratio"`
	ReserveRatio        float64 `yaml:"reserve_ratio"`
	ExpandRatio         float64 `yaml:"expand_ratio"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Defaults is the reference cadence: 10 ticks per second, ten-minute
// alliances, one hash sample per 100 turns.
func Defaults() Tuning {
	return Tuning{
		TurnIntervalMs:  100,
		SpawnPhaseTurns: 100,

		Alliance: AllianceTuning{
			DurationTicks:        6000,
			RequestDurationTicks: 300,
			RequestCooldownTicks: 300,
			DonationRelationGain: 50,
		},
		Economy: EconomyTuning{
			StartGold:           1000,
			StartTroops:         2500,
			GoldBaseRate:        10,
			GoldPerTile:         1,
			TroopBaseRate:       10,
			TroopPerTile:        0.2,
			MaxTroopsBase:       10000,
			MaxTroopsPerTile:    50,
			TraitorTroopPenalty: 0.8,
		},
		Units: UnitTuning{
			Costs: map[string]int64{
				"City":        1250,
				"Port":        1250,
				"Factory":     1250,
				"DefensePost": 500,
				"MissileSilo": 10000,
				"SAMLauncher": 15000,
				"Warship":     2500,
			},
			DeleteCooldownTicks: 50,
			DeleteOverdueTicks:  10,
			ConstructionTicks:   20,
		},
		Bot: BotTuning{
			ActionIntervalTicks: 10,
			EnemyStalenessTicks: 100,
			TriggerRatio:        0.6,
			ReserveRatio:        0.3,
			ExpandRatio:         0.2,
		},

		TicksPerClusterCalc:    20,
		RelationDecayInterval:  1,
		TraitorDurationTicks:   600,
		EmbargoDurationTicks:   3000,
		WinCheckIntervalTicks:  10,
		WinThresholdPercent:    80,
		HashSampleIntervalTurn: 100,
	}
}
