package tracker

import (
	"time"

	"courtside/internal/game"
	"courtside/internal/store"
)

// session is the in-memory GameSession. Only Controller methods touch it,
// always under Controller.mu.
type session struct {
	gameID       string
	tournamentID string
	homeTeamID   string
	awayTeamID   string
	coachMode    bool

	status     game.GameStatus
	clock      game.ClockState
	scores     map[string]int
	fouls      map[string]int
	timeouts   map[string]int
	possession game.Possession
	rosters    map[string]game.RosterState

	rules game.Ruleset
	auto  game.AutomationFlags
	// originalQuarterLength is in minutes and bounds manual clock edits.
	originalQuarterLength int

	prompts    []game.PlayPrompt
	lastAction string
	lastStat   *recordedStat

	timeoutActive bool
	timeoutTeamID string

	awaitingAwards bool
	winnerKey      string
	finalScores    map[string]int
	manualFinal    bool

	lastClockSync time.Time
}

// statDelta is the optimistic contribution of one stat to the tallies.
type statDelta struct {
	key    string
	points int
	foul   bool
}

func (d statDelta) empty() bool {
	return d.points == 0 && !d.foul
}

type recordedStat struct {
	key    string
	label  string
	delta  statDelta
	id     string
	failed bool
	undone bool
	// replay marks a key that was already stored by an earlier request. The
	// id belongs to that request's event, so undo must not delete it.
	replay bool
}

func newSession(g *store.Game, rules game.Ruleset, auto game.AutomationFlags, rosters map[string]game.RosterState) *session {
	s := &session{
		gameID:       g.ID,
		tournamentID: g.TournamentID,
		homeTeamID:   g.HomeTeamID,
		awayTeamID:   g.AwayTeamID,
		coachMode:    g.CoachMode(),
		status:       g.Status,
		scores:       map[string]int{},
		fouls:        map[string]int{},
		timeouts:     map[string]int{},
		rosters:      rosters,
		auto:         auto,
		winnerKey:    g.WinnerTeamID,
	}
	if s.rosters == nil {
		s.rosters = map[string]game.RosterState{}
	}
	s.originalQuarterLength = g.QuarterLengthMinutes
	if s.originalQuarterLength <= 0 {
		s.originalQuarterLength = rules.QuarterMinutes
	}
	// Regulation periods run for the game's own quarter length.
	rules.QuarterMinutes = s.originalQuarterLength
	s.rules = rules

	quarter := g.Quarter
	if quarter < 1 {
		quarter = 1
	}
	s.clock = game.ClockState{
		Quarter: quarter,
		Game:    game.GameClock{SecondsRemaining: g.ClockTotalSeconds()},
		Shot: game.ShotClock{
			SecondsRemaining: g.ShotClockSeconds,
			Visible:          g.ShotClockVisible && rules.HasShotClock,
		},
	}
	for _, key := range s.sides() {
		s.scores[key] = g.Scores[key]
		s.fouls[key] = g.TeamFouls[key]
		if v, ok := g.TeamTimeouts[key]; ok {
			s.timeouts[key] = v
		} else {
			s.timeouts[key] = rules.TimeoutsPerGame
		}
	}
	s.possession = game.Possession{CurrentTeamID: g.PossessionTeamID, Arrow: g.PossessionArrow}
	return s
}

// sides returns the two tally keys. In coach mode the opponent is the
// synthetic aggregate.
func (s *session) sides() [2]string {
	if s.coachMode {
		return [2]string{s.homeTeamID, game.OpponentKey}
	}
	return [2]string{s.homeTeamID, s.awayTeamID}
}

func (s *session) isSide(key string) bool {
	sides := s.sides()
	return key != "" && (key == sides[0] || key == sides[1])
}

func (s *session) isTeam(teamID string) bool {
	return teamID != "" && (teamID == s.homeTeamID || teamID == s.awayTeamID)
}

func (s *session) otherSide(key string) string {
	sides := s.sides()
	if key == sides[0] {
		return sides[1]
	}
	return sides[0]
}

func (s *session) apply(d statDelta) {
	s.scores[d.key] += d.points
	if d.foul {
		s.fouls[d.key]++
	}
}

// revert removes a delta, clamping every tally at zero.
func (s *session) revert(d statDelta) {
	s.scores[d.key] = clampZero(s.scores[d.key] - d.points)
	if d.foul {
		s.fouls[d.key] = clampZero(s.fouls[d.key] - 1)
	}
}

func (s *session) possessionState() game.PossessionState {
	return game.PossessionState{CurrentTeamID: s.possession.CurrentTeamID, Arrow: s.possession.Arrow}
}

func (s *session) openPrompt() *game.PlayPrompt {
	if len(s.prompts) == 0 || !s.prompts[0].IsOpen {
		return nil
	}
	return &s.prompts[0]
}

func (s *session) queuePrompts(queue []game.PlayPrompt) {
	for i := range queue {
		queue[i].IsOpen = false
	}
	s.prompts = append(s.prompts, queue...)
	if len(s.prompts) > 0 {
		s.prompts[0].IsOpen = true
	}
}

// advancePrompt drops the head prompt and opens the next one.
func (s *session) advancePrompt() bool {
	if len(s.prompts) == 0 {
		return false
	}
	s.prompts = s.prompts[1:]
	if len(s.prompts) > 0 {
		s.prompts[0].IsOpen = true
	}
	return true
}

func (s *session) dropPromptsFor(primaryKey string) {
	kept := s.prompts[:0]
	for _, p := range s.prompts {
		if p.PrimaryEventKey != primaryKey {
			kept = append(kept, p)
		}
	}
	s.prompts = kept
	if len(s.prompts) > 0 {
		s.prompts[0].IsOpen = true
	}
}

// linkPrompts fills in the persisted id of a primary event once its write lands.
func (s *session) linkPrompts(primaryKey, id string) {
	for i := range s.prompts {
		if s.prompts[i].PrimaryEventKey == primaryKey {
			s.prompts[i].PrimaryEventID = id
		}
	}
}

func (s *session) resetFouls() {
	for k := range s.fouls {
		s.fouls[k] = 0
	}
	for _, key := range s.sides() {
		s.fouls[key] = 0
	}
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Snapshot is the read-only view of a session handed to the presentation layer.
type Snapshot struct {
	GameID                string                      `json:"game_id"`
	Status                game.GameStatus             `json:"status"`
	Quarter               int                         `json:"quarter"`
	Period                string                      `json:"period"`
	Clock                 game.GameClock              `json:"clock"`
	ShotClock             game.ShotClock              `json:"shot_clock"`
	HomeTeamID            string                      `json:"home_team_id"`
	AwayTeamID            string                      `json:"away_team_id"`
	CoachMode             bool                        `json:"coach_mode"`
	Scores                map[string]int              `json:"scores"`
	TeamFouls             map[string]int              `json:"team_fouls"`
	TeamTimeouts          map[string]int              `json:"team_timeouts"`
	Possession            game.Possession             `json:"possession"`
	Ruleset               game.Ruleset                `json:"ruleset"`
	Automation            game.AutomationFlags        `json:"automation"`
	OriginalQuarterLength int                         `json:"original_quarter_length"`
	Prompt                *game.PlayPrompt            `json:"play_prompt,omitempty"`
	PromptQueue           []game.PlayPrompt           `json:"prompt_queue,omitempty"`
	LastAction            string                      `json:"last_action,omitempty"`
	CanUndo               bool                        `json:"can_undo"`
	TimeoutActive         bool                        `json:"timeout_active"`
	TimeoutTeamID         string                      `json:"timeout_team_id,omitempty"`
	AwaitingAwards        bool                        `json:"awaiting_awards"`
	WinnerTeamID          string                      `json:"winner_team_id,omitempty"`
	FinalScores           map[string]int              `json:"final_scores,omitempty"`
	Rosters               map[string]game.RosterState `json:"rosters,omitempty"`
	PendingWrites         int                         `json:"pending_writes"`
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		GameID:                s.gameID,
		Status:                s.status,
		Quarter:               s.clock.Quarter,
		Period:                game.PeriodLabel(s.clock.Quarter, s.rules),
		Clock:                 s.clock.Game,
		ShotClock:             s.clock.Shot,
		HomeTeamID:            s.homeTeamID,
		AwayTeamID:            s.awayTeamID,
		CoachMode:             s.coachMode,
		Scores:                copyCounts(s.scores),
		TeamFouls:             copyCounts(s.fouls),
		TeamTimeouts:          copyCounts(s.timeouts),
		Possession:            s.possession,
		Ruleset:               s.rules,
		Automation:            s.auto,
		OriginalQuarterLength: s.originalQuarterLength,
		LastAction:            s.lastAction,
		CanUndo:               s.lastStat != nil && !s.lastStat.failed,
		TimeoutActive:         s.timeoutActive,
		TimeoutTeamID:         s.timeoutTeamID,
		AwaitingAwards:        s.awaitingAwards,
		WinnerTeamID:          s.winnerKey,
	}
	if p := s.openPrompt(); p != nil {
		cp := *p
		snap.Prompt = &cp
	}
	if len(s.prompts) > 0 {
		snap.PromptQueue = append([]game.PlayPrompt(nil), s.prompts...)
	}
	if s.finalScores != nil {
		snap.FinalScores = copyCounts(s.finalScores)
	}
	if len(s.rosters) > 0 {
		snap.Rosters = make(map[string]game.RosterState, len(s.rosters))
		for k, v := range s.rosters {
			snap.Rosters[k] = v
		}
	}
	return snap
}
