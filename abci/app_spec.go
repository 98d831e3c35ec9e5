package abci

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AppSpec is the static description of an app: the rounds, the transition
// table and the data each round requires and produces.
type AppSpec struct {
	Name          string
	InitialRound  RoundID
	InitialStates []RoundID
	FinalStates   []RoundID

	Rounds      map[RoundID]RoundSpec
	Transitions map[RoundID]map[Event]RoundID

	EventToTimeout           map[Event]time.Duration
	CrossPeriodPersistedKeys []string
	DBPreConditions          map[RoundID][]string
	DBPostConditions         map[RoundID][]string
}

// ConfigError lists every problem found in an app spec.
type ConfigError struct {
	App      string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid app %s: %s", e.App, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) addf(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// IsFinal reports whether r is a final state.
func (s *AppSpec) IsFinal(r RoundID) bool {
	for _, f := range s.FinalStates {
		if f == r {
			return true
		}
	}
	return false
}

// IsInitial reports whether r is an initial state.
func (s *AppSpec) IsInitial(r RoundID) bool {
	for _, i := range s.InitialStates {
		if i == r {
			return true
		}
	}
	return false
}

// Validate checks the transition table and its conditions. It returns *ConfigError.
func (s *AppSpec) Validate() error {
	cerr := &ConfigError{App: s.Name}

	if _, ok := s.Rounds[s.InitialRound]; !ok {
		cerr.addf("initial round %s is not defined", s.InitialRound)
	}
	if !s.IsInitial(s.InitialRound) {
		cerr.addf("initial round %s is not an initial state", s.InitialRound)
	}
	for _, r := range s.InitialStates {
		if _, ok := s.Rounds[r]; !ok {
			cerr.addf("initial state %s is not defined", r)
		}
	}
	for _, f := range s.FinalStates {
		if _, ok := s.Rounds[f]; ok {
			cerr.addf("final state %s is a running round", f)
		}
		if len(s.Transitions[f]) != 0 {
			cerr.addf("final state %s has outgoing transitions", f)
		}
	}

	for _, r := range sortedRounds(s.Rounds) {
		spec := s.Rounds[r]
		transitions := s.Transitions[r]
		for _, e := range spec.Events() {
			if _, ok := transitions[e]; !ok {
				cerr.addf("round %s may emit %s which has no transition", r, e)
			}
		}
		if _, ok := transitions[EventNoMajority]; !ok {
			cerr.addf("round %s does not handle %s", r, EventNoMajority)
		}
	}
	for r, transitions := range s.Transitions {
		if _, ok := s.Rounds[r]; !ok && !s.IsFinal(r) {
			cerr.addf("transitions from unknown round %s", r)
		}
		for e, next := range transitions {
			if _, ok := s.Rounds[next]; !ok && !s.IsFinal(next) {
				cerr.addf("round %s moves on %s to unknown round %s", r, e, next)
			}
		}
	}
	for e, d := range s.EventToTimeout {
		if d <= 0 {
			cerr.addf("timeout of %s must be positive", e)
		}
	}

	s.validateConditions(cerr)

	if len(cerr.Problems) != 0 {
		sort.Strings(cerr.Problems)
		return cerr
	}
	return nil
}

func (s *AppSpec) validateConditions(cerr *ConfigError) {
	for r := range s.DBPreConditions {
		if !s.IsInitial(r) {
			cerr.addf("pre conditions set for %s which is not an initial state", r)
		}
	}
	for r := range s.DBPostConditions {
		if !s.IsFinal(r) {
			cerr.addf("post conditions set for %s which is not a final state", r)
		}
	}
	for _, r := range s.InitialStates {
		if _, ok := s.DBPreConditions[r]; !ok {
			cerr.addf("initial state %s has no pre conditions", r)
		}
	}
	for _, f := range s.FinalStates {
		if _, ok := s.DBPostConditions[f]; !ok {
			cerr.addf("final state %s has no post conditions", f)
		}
	}

	for _, start := range s.InitialStates {
		pre := make(map[string]bool)
		for _, k := range s.DBPreConditions[start] {
			pre[k] = true
		}
		for _, f := range s.ReachableFinalStates(start) {
			for _, k := range s.DBPostConditions[f] {
				if pre[k] {
					cerr.addf("%s is both required by %s and produced by %s", k, start, f)
				}
			}
		}
	}
}

// ReachableFinalStates returns the sorted final states reachable from r.
func (s *AppSpec) ReachableFinalStates(r RoundID) []RoundID {
	seen := map[RoundID]bool{r: true}
	queue := []RoundID{r}
	var finals []RoundID
	for len(queue) != 0 {
		cur := queue[0]
		queue = queue[1:]
		if s.IsFinal(cur) {
			finals = append(finals, cur)
			continue
		}
		for _, next := range s.Transitions[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	sort.Slice(finals, func(i, j int) bool { return finals[i] < finals[j] })
	return finals
}

func sortedRounds(rr map[RoundID]RoundSpec) []RoundID {
	res := make([]RoundID, 0, len(rr))
	for r := range rr {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// String prints the transition table, one transition per line.
func (s *AppSpec) String() string {
	var sb strings.Builder
	rounds := make([]RoundID, 0, len(s.Transitions))
	for r := range s.Transitions {
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i] < rounds[j] })

	fmt.Fprintf(&sb, "%s (initial %s)\n", s.Name, s.InitialRound)
	for _, r := range rounds {
		events := make([]string, 0, len(s.Transitions[r]))
		for e := range s.Transitions[r] {
			events = append(events, string(e))
		}
		sort.Strings(events)
		for _, e := range events {
			fmt.Fprintf(&sb, "  %s --%s--> %s\n", r, e, s.Transitions[r][Event(e)])
		}
	}
	return sb.String()
}
