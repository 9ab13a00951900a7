package store

import (
	"time"

	"courtside/internal/game"
)

type Game struct {
	ID                   string          `json:"id"`
	TournamentID         string          `json:"tournament_id,omitempty"`
	HomeTeamID           string          `json:"home_team_id"`
	AwayTeamID           string          `json:"away_team_id"`
	Status               game.GameStatus `json:"status"`
	Quarter              int             `json:"quarter"`
	QuarterLengthMinutes int             `json:"quarter_length_minutes"`
	ClockMinutes         int             `json:"clock_minutes"`
	ClockSeconds         int             `json:"clock_seconds"`
	ClockRunning         bool            `json:"clock_running"`
	ShotClockSeconds     int             `json:"shot_clock_seconds"`
	ShotClockVisible     bool            `json:"shot_clock_visible"`
	Scores               map[string]int  `json:"scores"`
	TeamFouls            map[string]int  `json:"team_fouls"`
	TeamTimeouts         map[string]int  `json:"team_timeouts"`
	PossessionTeamID     string          `json:"possession_team_id"`
	PossessionArrow      string          `json:"possession_arrow"`
	WinnerTeamID         string          `json:"winner_team_id,omitempty"`
	Awards               []Award         `json:"awards"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CoachMode reports a single-roster game: both sides carry the tracked team id.
func (g Game) CoachMode() bool {
	return g.HomeTeamID == g.AwayTeamID
}

func (g Game) ClockTotalSeconds() int {
	return g.ClockMinutes*60 + g.ClockSeconds
}

type Award struct {
	PlayerID string `json:"player_id"`
	Award    string `json:"award"`
}

// NewGame is the input for CreateGame.
type NewGame struct {
	ID                   string
	TournamentID         string
	HomeTeamID           string
	AwayTeamID           string
	QuarterLengthMinutes int
	ShotClockSeconds     int
	TeamTimeouts         map[string]int
}

// ClockUpdate is the payload of UpdateGameClock.
type ClockUpdate struct {
	Minutes          int
	Seconds          int
	Running          bool
	ShotClockSeconds *int
}

// GameUpdate carries the fields UpdateGameState writes. Nil fields are left untouched.
type GameUpdate struct {
	Status           *game.GameStatus
	Quarter          *int
	Clock            *ClockUpdate
	Scores           map[string]int
	TeamFouls        map[string]int
	TeamTimeouts     map[string]int
	PossessionTeamID *string
	PossessionArrow  *string
	ShotClockVisible *bool
	WinnerTeamID     *string
	Awards           []Award
}

// StatInsert is a stat write. LinkedEventKey names the primary event by its
// idempotency key; the store resolves it to the persisted id.
type StatInsert struct {
	Event          game.StatEvent
	LinkedEventKey string
}

type TimeoutRecord struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	GameID         string    `json:"game_id"`
	TeamID         string    `json:"team_id"`
	Type           string    `json:"timeout_type"`
	Quarter        int       `json:"quarter"`
	GameTimeSecs   int       `json:"game_time_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

type SubstitutionRecord struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	GameID         string    `json:"game_id"`
	TeamID         string    `json:"team_id"`
	PlayerOutID    string    `json:"player_out_id"`
	PlayerInID     string    `json:"player_in_id"`
	Quarter        int       `json:"quarter"`
	GameTimeSecs   int       `json:"game_time_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

// RuleSource is one level of ruleset configuration. Empty Ruleset and nil
// automation flags defer to the next level.
type RuleSource struct {
	Ruleset              string
	AutomationClock      *bool
	AutomationPossession *bool
	AutomationSequences  *bool
}

type Tournament struct {
	ID   string
	Name string
	RuleSource
}
