package game

import "strings"

// Ruleset is the immutable rule configuration loaded once per session.
type Ruleset struct {
	Name                  string `json:"name" yaml:"name"`
	QuarterMinutes        int    `json:"quarter_minutes" yaml:"quarter_minutes"`
	Periods               int    `json:"periods" yaml:"periods"`
	OvertimeMinutes       int    `json:"overtime_minutes" yaml:"overtime_minutes"`
	HasShotClock          bool   `json:"has_shot_clock" yaml:"has_shot_clock"`
	ShotClockSeconds      int    `json:"shot_clock_seconds" yaml:"shot_clock_seconds"`
	OffensiveResetSeconds int    `json:"offensive_reset_seconds" yaml:"offensive_reset_seconds"`
	BonusFouls            int    `json:"bonus_fouls" yaml:"bonus_fouls"`
	TimeoutsPerGame       int    `json:"timeouts_per_game" yaml:"timeouts_per_game"`
	UsePossessionArrow    bool   `json:"use_possession_arrow" yaml:"use_possession_arrow"`
	LateClockStopSeconds  int    `json:"late_clock_stop_seconds" yaml:"late_clock_stop_seconds"`
	TechnicalFreeThrows   int    `json:"technical_free_throws" yaml:"technical_free_throws"`
	FlagrantFreeThrows    int    `json:"flagrant_free_throws" yaml:"flagrant_free_throws"`
}

// AutomationFlags selects which engines act without operator input.
type AutomationFlags struct {
	Clock      bool `json:"clock" yaml:"clock"`
	Possession bool `json:"possession" yaml:"possession"`
	Sequences  bool `json:"sequences" yaml:"sequences"`
}

func AllAutomation() AutomationFlags {
	return AutomationFlags{Clock: true, Possession: true, Sequences: true}
}

func NBARules() Ruleset {
	return Ruleset{
		Name:                  "nba",
		QuarterMinutes:        12,
		Periods:               4,
		OvertimeMinutes:       5,
		HasShotClock:          true,
		ShotClockSeconds:      24,
		OffensiveResetSeconds: 14,
		BonusFouls:            5,
		TimeoutsPerGame:       7,
		LateClockStopSeconds:  120,
		TechnicalFreeThrows:   1,
		FlagrantFreeThrows:    2,
	}
}

func FIBARules() Ruleset {
	return Ruleset{
		Name:                  "fiba",
		QuarterMinutes:        10,
		Periods:               4,
		OvertimeMinutes:       5,
		HasShotClock:          true,
		ShotClockSeconds:      24,
		OffensiveResetSeconds: 14,
		BonusFouls:            5,
		TimeoutsPerGame:       5,
		UsePossessionArrow:    true,
		LateClockStopSeconds:  120,
		TechnicalFreeThrows:   1,
		FlagrantFreeThrows:    2,
	}
}

func NCAARules() Ruleset {
	return Ruleset{
		Name:                  "ncaa",
		QuarterMinutes:        10,
		Periods:               4,
		OvertimeMinutes:       5,
		HasShotClock:          true,
		ShotClockSeconds:      30,
		OffensiveResetSeconds: 20,
		BonusFouls:            5,
		TimeoutsPerGame:       4,
		UsePossessionArrow:    true,
		LateClockStopSeconds:  60,
		TechnicalFreeThrows:   2,
		FlagrantFreeThrows:    2,
	}
}

func HighSchoolRules() Ruleset {
	return Ruleset{
		Name:                "high_school",
		QuarterMinutes:      8,
		Periods:             4,
		OvertimeMinutes:     4,
		BonusFouls:          5,
		TimeoutsPerGame:     5,
		UsePossessionArrow:  true,
		TechnicalFreeThrows: 2,
		FlagrantFreeThrows:  2,
	}
}

// Presets returns the built-in rulesets keyed by name.
func Presets() map[string]Ruleset {
	return map[string]Ruleset{
		"nba":         NBARules(),
		"fiba":        FIBARules(),
		"ncaa":        NCAARules(),
		"high_school": HighSchoolRules(),
	}
}

// PresetByName looks up a built-in ruleset, case-insensitively.
func PresetByName(name string) (Ruleset, bool) {
	r, ok := Presets()[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// PeriodSeconds returns the clock length of the given period.
func (r Ruleset) PeriodSeconds(quarter int) int {
	if r.IsOvertime(quarter) {
		return r.OvertimeMinutes * 60
	}
	return r.QuarterMinutes * 60
}

func (r Ruleset) IsOvertime(quarter int) bool {
	return quarter > r.regulationPeriods()
}

func (r Ruleset) regulationPeriods() int {
	if r.Periods <= 0 {
		return 4
	}
	return r.Periods
}

// FullShotClock is the reset value after a change of possession.
func (r Ruleset) FullShotClock() int {
	if r.ShotClockSeconds <= 0 {
		return 24
	}
	return r.ShotClockSeconds
}

// OffensiveReset is the reset floor after an offensive rebound or defensive foul.
func (r Ruleset) OffensiveReset() int {
	if r.OffensiveResetSeconds <= 0 {
		return r.FullShotClock()
	}
	return r.OffensiveResetSeconds
}
