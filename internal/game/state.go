package game

import "time"

type GameStatus string

const (
	StatusScheduled  GameStatus = "scheduled"
	StatusInProgress GameStatus = "in_progress"
	StatusOvertime   GameStatus = "overtime"
	StatusCompleted  GameStatus = "completed"
	StatusCancelled  GameStatus = "cancelled"
)

// Terminal reports whether the game accepts no further stats or substitutions.
func (s GameStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type StatType string

const (
	StatFieldGoal    StatType = "field_goal"
	StatThreePointer StatType = "three_pointer"
	StatFreeThrow    StatType = "free_throw"
	StatAssist       StatType = "assist"
	StatRebound      StatType = "rebound"
	StatSteal        StatType = "steal"
	StatBlock        StatType = "block"
	StatTurnover     StatType = "turnover"
	StatFoul         StatType = "foul"

	// Engine-only events, never persisted as game_stats rows.
	StatTimeout      StatType = "timeout"
	StatSubstitution StatType = "substitution"
	StatJumpBall     StatType = "jump_ball"
)

// IsShot reports whether the stat is a field goal or free throw attempt.
func (t StatType) IsShot() bool {
	return t == StatFieldGoal || t == StatThreePointer || t == StatFreeThrow
}

// IsFieldGoal reports whether the stat is a two or three point attempt.
func (t StatType) IsFieldGoal() bool {
	return t == StatFieldGoal || t == StatThreePointer
}

// Recordable reports whether the stat type can be persisted as a StatEvent.
func (t StatType) Recordable() bool {
	switch t {
	case StatFieldGoal, StatThreePointer, StatFreeThrow, StatAssist, StatRebound,
		StatSteal, StatBlock, StatTurnover, StatFoul:
		return true
	default:
		return false
	}
}

type Modifier string

const (
	ModifierNone      Modifier = ""
	ModifierMade      Modifier = "made"
	ModifierMissed    Modifier = "missed"
	ModifierOffensive Modifier = "offensive"
	ModifierDefensive Modifier = "defensive"
	ModifierPersonal  Modifier = "personal"
	ModifierShooting  Modifier = "shooting"
	ModifierTechnical Modifier = "technical"
	ModifierFlagrant  Modifier = "flagrant"
)

// OpponentKey is the synthetic score key used for the untracked team in coach mode.
const OpponentKey = "opponent"

// StatEvent is one append-only recorded action.
type StatEvent struct {
	ID             string    `json:"id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	GameID         string    `json:"game_id"`
	TeamID         string    `json:"team_id"`
	PlayerID       string    `json:"player_id,omitempty"`
	CustomPlayerID string    `json:"custom_player_id,omitempty"`
	IsOpponentStat bool      `json:"is_opponent_stat"`
	StatType       StatType  `json:"stat_type"`
	Modifier       Modifier  `json:"modifier,omitempty"`
	StatValue      int       `json:"stat_value"`
	Quarter        int       `json:"quarter"`
	GameTimeSecs   int       `json:"game_time_seconds"`
	SequenceID     string    `json:"sequence_id,omitempty"`
	LinkedEventID  string    `json:"linked_event_id,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

type GameClock struct {
	SecondsRemaining int  `json:"seconds_remaining"`
	Running          bool `json:"is_running"`
}

type ShotClock struct {
	SecondsRemaining int  `json:"seconds_remaining"`
	Running          bool `json:"is_running"`
	Visible          bool `json:"is_visible"`
}

// MaxShotClockSeconds bounds any manual shot clock edit.
const MaxShotClockSeconds = 35

type ClockState struct {
	Game    GameClock `json:"game"`
	Shot    ShotClock `json:"shot"`
	Quarter int       `json:"quarter"`
}

type Possession struct {
	CurrentTeamID       string    `json:"current_team_id"`
	Arrow               string    `json:"possession_arrow"`
	LastChangeReason    string    `json:"last_change_reason,omitempty"`
	LastChangeTimestamp time.Time `json:"last_change_timestamp,omitempty"`
}

type PromptType string

const (
	PromptAssist    PromptType = "assist"
	PromptRebound   PromptType = "rebound"
	PromptBlockedBy PromptType = "blocked_shot"
	PromptFreeThrow PromptType = "free_throw"
	PromptTurnover  PromptType = "turnover"
)

// PlayPrompt asks the operator for an optional follow-up stat.
type PlayPrompt struct {
	IsOpen          bool           `json:"is_open"`
	Type            PromptType     `json:"type"`
	SequenceID      string         `json:"sequence_id"`
	PrimaryEventKey string         `json:"primary_event_key"`
	PrimaryEventID  string         `json:"primary_event_id,omitempty"`
	TeamID          string         `json:"team_id"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type RosterState struct {
	TeamID  string   `json:"team_id"`
	OnCourt []string `json:"on_court"`
	Bench   []string `json:"bench"`
}

// OnCourtSize is the number of players a tracked team fields.
const OnCourtSize = 5

func (r RosterState) IsOnCourt(playerID string) bool {
	return contains(r.OnCourt, playerID)
}

func (r RosterState) IsOnBench(playerID string) bool {
	return contains(r.Bench, playerID)
}

// Swap returns a copy of the roster with out moved to the bench and in moved on court.
func (r RosterState) Swap(out, in string) RosterState {
	next := RosterState{TeamID: r.TeamID}
	for _, p := range r.OnCourt {
		if p != out {
			next.OnCourt = append(next.OnCourt, p)
		}
	}
	next.OnCourt = append(next.OnCourt, in)
	for _, p := range r.Bench {
		if p != in {
			next.Bench = append(next.Bench, p)
		}
	}
	next.Bench = append(next.Bench, out)
	return next
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
