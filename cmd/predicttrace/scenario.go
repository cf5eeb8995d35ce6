// Scenario files describe a tiny hand-built ATN plus a token stream to run
// prediction against, so a grammar author can reproduce and step through a
// decision without wiring up a full generated parser. This is a debugging
// fixture format of its own, not a rendition of any serialized-ATN binary
// blob; a top-level struct is decoded directly by BurntSushi/toml.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dekarrin/allstar/internal/atn"
)

// scenarioFile is the on-disk shape of a predicttrace scenario.
type scenarioFile struct {
	Rules        []string        `toml:"rules"`
	MaxTokenType int             `toml:"max_token_type"`
	States       []stateSpec     `toml:"state"`
	Decisions    []int           `toml:"decisions"`
	Tokens       []tokenSpec     `toml:"token"`
}

type stateSpec struct {
	Number      int              `toml:"number"`
	Kind        string           `toml:"kind"` // "plain", "decision", "rulestart", "rulestop"
	Rule        int              `toml:"rule"`
	Transitions []transitionSpec `toml:"transition"`
}

type transitionSpec struct {
	Kind         string `toml:"kind"` // epsilon, rule, atom, set, notset, range, wildcard, predicate, precedence, action
	To           int    `toml:"to"`
	Label        int    `toml:"label"`
	Lo           int    `toml:"lo"`
	Hi           int    `toml:"hi"`
	FollowState  int    `toml:"follow_state"`
	RuleIndex    int    `toml:"rule_index"`
	PredIndex    int    `toml:"pred_index"`
	CtxDependent bool   `toml:"ctx_dependent"`
	Precedence   int    `toml:"precedence"`
	ActionIndex  int    `toml:"action_index"`
}

type tokenSpec struct {
	Type int    `toml:"type"`
	Text string `toml:"text"`
}

// loadScenario reads and decodes a scenario TOML file at path and builds an
// atn.Graph, validating the graph before returning it alongside the decoded
// file (whose token list the caller turns into a stream).
func loadScenario(path string) (*scenarioFile, *atn.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scenario: %w", err)
	}

	var sf scenarioFile
	if err := toml.Unmarshal(data, &sf); err != nil {
		return nil, nil, fmt.Errorf("parse scenario: %w", err)
	}

	graph := atn.NewGraph(sf.Rules, sf.MaxTokenType)

	byNumber := make(map[int]*atn.State, len(sf.States))
	for _, ss := range sf.States {
		kind, err := parseStateKind(ss.Kind)
		if err != nil {
			return nil, nil, err
		}
		// AddState assigns numbers densely from 0; scenario files are
		// expected to number their states that way too, so the returned
		// state's Number always matches ss.Number for a well-formed file.
		st := graph.AddState(kind, ss.Rule)
		if st.Number != ss.Number {
			return nil, nil, fmt.Errorf("state %d declared out of order (graph assigned %d); scenario states must be listed in ascending Number order starting at 0", ss.Number, st.Number)
		}
		byNumber[ss.Number] = st
	}

	for _, ss := range sf.States {
		st := byNumber[ss.Number]
		for _, ts := range ss.Transitions {
			tr, err := buildTransition(ts)
			if err != nil {
				return nil, nil, fmt.Errorf("state %d: %w", ss.Number, err)
			}
			st.AddTransition(tr)
		}
	}

	for _, d := range sf.Decisions {
		st, ok := byNumber[d]
		if !ok {
			return nil, nil, fmt.Errorf("decision references unknown state %d", d)
		}
		graph.DefineDecision(st)
	}

	if err := graph.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid scenario ATN: %w", err)
	}

	return &sf, graph, nil
}

func parseStateKind(s string) (atn.StateKind, error) {
	switch s {
	case "", "plain":
		return atn.StatePlain, nil
	case "decision":
		return atn.StateDecision, nil
	case "rulestart":
		return atn.StateRuleStart, nil
	case "rulestop":
		return atn.StateRuleStop, nil
	default:
		return 0, fmt.Errorf("unknown state kind %q", s)
	}
}

func buildTransition(ts transitionSpec) (atn.Transition, error) {
	switch ts.Kind {
	case "epsilon":
		return atn.EpsilonTransition{To: ts.To}, nil
	case "rule":
		return atn.RuleTransition{To: ts.To, FollowState: ts.FollowState, RuleIndex: ts.RuleIndex, Precedence: ts.Precedence}, nil
	case "atom":
		return atn.AtomTransition{To: ts.To, Label: ts.Label}, nil
	case "set":
		return atn.SetTransition{To: ts.To, Intervals: []atn.Interval{{Lo: ts.Lo, Hi: ts.Hi}}}, nil
	case "notset":
		return atn.NotSetTransition{To: ts.To, Intervals: []atn.Interval{{Lo: ts.Lo, Hi: ts.Hi}}}, nil
	case "range":
		return atn.RangeTransition{To: ts.To, Lo: ts.Lo, Hi: ts.Hi}, nil
	case "wildcard":
		return atn.WildcardTransition{To: ts.To}, nil
	case "predicate":
		return atn.PredicateTransition{To: ts.To, RuleIndex: ts.RuleIndex, PredIndex: ts.PredIndex, CtxDependent: ts.CtxDependent}, nil
	case "precedence":
		return atn.PrecedenceTransition{To: ts.To, Precedence: ts.Precedence}, nil
	case "action":
		return atn.ActionTransition{To: ts.To, RuleIndex: ts.RuleIndex, ActionIndex: ts.ActionIndex}, nil
	default:
		return nil, fmt.Errorf("unknown transition kind %q", ts.Kind)
	}
}
