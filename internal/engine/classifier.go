package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// Rule maps log text to an event kind. Exactly one of Contains or Pattern is set.
type Rule struct {
	ID       string
	Process  models.Process
	Contains string
	Pattern  *regexp.Regexp
	Kind     models.EventKind
}

func (r Rule) matches(body string) bool {
	if r.Pattern != nil {
		return r.Pattern.MatchString(body)
	}
	return strings.Contains(body, r.Contains)
}

// RuleSpec is the YAML form of a Rule.
type RuleSpec struct {
	ID       string `yaml:"id"`
	Process  string `yaml:"process"`
	Contains string `yaml:"contains"`
	Pattern  string `yaml:"pattern"`
	Kind     string `yaml:"kind"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// DefaultRules returns the built-in table. Order matters: the first match wins.
func DefaultRules() []Rule {
	c, s := models.ProcessClient, models.ProcessServer
	return []Rule{
		{ID: "client-unique-id", Process: c, Contains: "Received unique ID from server", Kind: models.ClientReceivedUniqueID},
		{ID: "client-game-state", Process: c, Contains: "Just received a game update", Kind: models.ClientReceivedGameState},
		{ID: "client-player-lock", Process: c, Contains: "just got the jolt lock to update player", Kind: models.ClientUpdatePlayerLock},
		{ID: "client-character-state", Process: c, Contains: "just set character state", Kind: models.ClientSetCharacterState},
		{ID: "client-physics-tick", Process: c, Contains: "physics tick with delta", Kind: models.ClientPhysicsTick},
		{ID: "client-history-insert", Process: c, Contains: "inserting into input snapshot history", Kind: models.ClientInputHistoryInsert},
		{ID: "client-sent-snapshot", Process: c, Contains: "sending input snapshot", Kind: models.ClientSentInputSnapshot},
		{ID: "client-reapply", Process: c, Contains: "about to re apply", Kind: models.ClientReappliedInputs},
		{ID: "client-frame-timing", Process: c, Contains: "update and render took", Kind: models.ClientFrameTiming},

		{ID: "server-initialized", Process: s, Contains: "server has been initialized", Kind: models.ServerInitialized},
		{ID: "server-received-snapshot", Process: s, Contains: "Just received input snapshot", Kind: models.ServerReceivedInputSnapshot},
		{ID: "server-updated-player", Process: s, Contains: "updated player state", Kind: models.ServerUpdatedPlayerState},
		{ID: "server-physics-tick", Process: s, Contains: "physics tick", Kind: models.ServerPhysicsTick},
		{ID: "server-sent-update", Process: s, Contains: "Sending game update", Kind: models.ServerSentGameUpdate},
	}
}

// LoadRules reads extra rules from path. An empty path or a missing file yields no rules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for i, spec := range cfg.Rules {
		rule, err := spec.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s RuleSpec) compile() (Rule, error) {
	process, err := models.ParseProcess(s.Process)
	if err != nil {
		return Rule{}, err
	}
	kind, err := models.ParseEventKind(s.Kind)
	if err != nil {
		return Rule{}, err
	}
	rule := Rule{ID: s.ID, Process: process, Contains: s.Contains, Kind: kind}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("compile pattern: %w", err)
		}
		rule.Pattern = re
	}
	return rule, nil
}

// Classifier assigns event kinds to records with an ordered, first-match rule table per process.
type Classifier struct {
	byProcess map[models.Process][]Rule
	logger    *slog.Logger
}

// NewClassifier builds a classifier from the default rules followed by extra.
func NewClassifier(logger *slog.Logger, extra []Rule) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{byProcess: make(map[models.Process][]Rule), logger: logger}
	for _, rule := range append(DefaultRules(), extra...) {
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		c.byProcess[rule.Process] = append(c.byProcess[rule.Process], rule)
	}
	return c, nil
}

func validateRule(rule Rule) error {
	switch {
	case !rule.Kind.Valid():
		return fmt.Errorf("rule %q: invalid kind", rule.ID)
	case rule.Contains == "" && rule.Pattern == nil:
		return fmt.Errorf("rule %q: contains or pattern is required", rule.ID)
	case rule.Contains != "" && rule.Pattern != nil:
		return fmt.Errorf("rule %q: contains and pattern are mutually exclusive", rule.ID)
	case rule.Kind.Process() != rule.Process:
		return fmt.Errorf("rule %q: kind %s is not emitted by the %s", rule.ID, rule.Kind, rule.Process)
	}
	return nil
}

// Classify returns the kind of the first matching rule for the record's process, or KindIrrelevant.
func (c *Classifier) Classify(record models.LogRecord) models.EventKind {
	for _, rule := range c.byProcess[record.Process] {
		if rule.matches(record.Body) {
			return rule.Kind
		}
	}
	return models.KindIrrelevant
}

// Rules returns the rule count per process.
func (c *Classifier) Rules(process models.Process) int {
	return len(c.byProcess[process])
}
