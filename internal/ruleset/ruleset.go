package ruleset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"courtside/internal/game"
	"courtside/internal/store"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrUnknownRuleset = errors.New("unknown_ruleset")

// Sources is the per-game and per-tournament configuration kept in the store.
type Sources interface {
	GameRuleOverride(ctx context.Context, gameID string) (store.RuleSource, error)
	TournamentRules(ctx context.Context, tournamentID string) (store.RuleSource, error)
}

// Defaults is the system level of the resolution chain.
type Defaults struct {
	Ruleset    string
	Automation game.AutomationFlags
}

type Resolver struct {
	presets  map[string]game.Ruleset
	sources  Sources
	defaults Defaults
}

func NewResolver(sources Sources, defaults Defaults, presets map[string]game.Ruleset) *Resolver {
	all := game.Presets()
	for name, r := range presets {
		all[name] = r
	}
	if defaults.Ruleset == "" {
		defaults.Ruleset = "nba"
	}
	return &Resolver{presets: all, sources: sources, defaults: defaults}
}

// Resolve picks the ruleset and automation flags for one game. Each setting
// is taken from the per-game override, then the tournament, then the
// system default, whichever first provides it.
func (r *Resolver) Resolve(ctx context.Context, gameID, tournamentID string) (game.Ruleset, game.AutomationFlags, error) {
	chain := make([]store.RuleSource, 0, 2)
	if r.sources != nil {
		if src, err := r.sources.GameRuleOverride(ctx, gameID); err == nil {
			chain = append(chain, src)
		} else if !errors.Is(err, store.ErrNotFound) {
			return game.Ruleset{}, game.AutomationFlags{}, err
		}
		if tournamentID != "" {
			if src, err := r.sources.TournamentRules(ctx, tournamentID); err == nil {
				chain = append(chain, src)
			} else if !errors.Is(err, store.ErrNotFound) {
				return game.Ruleset{}, game.AutomationFlags{}, err
			}
		}
	}

	name := r.defaults.Ruleset
	auto := r.defaults.Automation
	// Walk lowest priority first so higher levels overwrite.
	for i := len(chain) - 1; i >= 0; i-- {
		src := chain[i]
		if src.Ruleset != "" {
			name = src.Ruleset
		}
		if src.AutomationClock != nil {
			auto.Clock = *src.AutomationClock
		}
		if src.AutomationPossession != nil {
			auto.Possession = *src.AutomationPossession
		}
		if src.AutomationSequences != nil {
			auto.Sequences = *src.AutomationSequences
		}
	}
	rules, ok := r.Lookup(name)
	if !ok {
		return game.Ruleset{}, game.AutomationFlags{}, fmt.Errorf("%w: %s", ErrUnknownRuleset, name)
	}
	log.Debug().Str("game_id", gameID).Str("ruleset", rules.Name).Bool("auto_clock", auto.Clock).
		Bool("auto_possession", auto.Possession).Bool("auto_sequences", auto.Sequences).Msg("ruleset resolved")
	return rules, auto, nil
}

func (r *Resolver) Lookup(name string) (game.Ruleset, bool) {
	rules, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	return rules, ok
}

func (r *Resolver) Names() []string {
	out := make([]string, 0, len(r.presets))
	for name := range r.presets {
		out = append(out, name)
	}
	return out
}

// LoadPresets reads extra rulesets from a YAML file. A ruleset may name a
// built-in preset in `base` and override only some fields.
func LoadPresets(path string) (map[string]game.Ruleset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePresets(b)
}

func ParsePresets(b []byte) (map[string]game.Ruleset, error) {
	var raw struct {
		Rulesets []yaml.Node `yaml:"rulesets"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := map[string]game.Ruleset{}
	for _, node := range raw.Rulesets {
		var head struct {
			Name string `yaml:"name"`
			Base string `yaml:"base"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, err
		}
		if head.Name == "" {
			return nil, errors.New("ruleset name required")
		}
		var r game.Ruleset
		if head.Base != "" {
			base, ok := game.PresetByName(head.Base)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownRuleset, head.Base)
			}
			r = base
		}
		if err := node.Decode(&r); err != nil {
			return nil, err
		}
		r.Name = strings.ToLower(head.Name)
		out[r.Name] = r
	}
	return out, nil
}
