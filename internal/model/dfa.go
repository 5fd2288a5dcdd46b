package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Symbol is one letter of the binary input alphabet.
type Symbol byte

const (
	Zero Symbol = '0'
	One  Symbol = '1'
)

// Alphabet lists the input symbols in their canonical order.
var Alphabet = []Symbol{Zero, One}

func (s Symbol) Valid() bool {
	return s == Zero || s == One
}

func (s Symbol) String() string {
	return string(rune(s))
}

// State names one automaton state. Generated names follow q0, q1, q2, ...
type State string

var ErrInvalidDFA = errors.New("invalid dfa")

// DFA is a deterministic finite automaton over Alphabet. Values are treated
// as immutable once built: every edit goes through Clone first.
type DFA struct {
	Transitions map[State]map[Symbol]State
	Accepting   map[State]bool
	Initial     State
}

// States returns the state set in canonical order.
func (d DFA) States() []State {
	states := make([]State, 0, len(d.Transitions))
	for state := range d.Transitions {
		states = append(states, state)
	}
	SortStates(states)
	return states
}

func (d DFA) NumStates() int {
	return len(d.Transitions)
}

func (d DFA) HasState(state State) bool {
	_, ok := d.Transitions[state]
	return ok
}

// Clone returns a deep copy that shares no maps with d.
func (d DFA) Clone() DFA {
	out := DFA{
		Transitions: make(map[State]map[Symbol]State, len(d.Transitions)),
		Accepting:   make(map[State]bool, len(d.Accepting)),
		Initial:     d.Initial,
	}
	for state, row := range d.Transitions {
		copied := make(map[Symbol]State, len(row))
		for symbol, target := range row {
			copied[symbol] = target
		}
		out.Transitions[state] = copied
	}
	for state, accepting := range d.Accepting {
		out.Accepting[state] = accepting
	}
	return out
}

// Validate checks the totality invariants: identical key sets, a valid
// initial state, and a valid target for every state and symbol.
func (d DFA) Validate() error {
	if len(d.Transitions) == 0 {
		return fmt.Errorf("%w: no states", ErrInvalidDFA)
	}
	if len(d.Accepting) != len(d.Transitions) {
		return fmt.Errorf("%w: transitions cover %d states, accepting covers %d", ErrInvalidDFA, len(d.Transitions), len(d.Accepting))
	}
	for _, state := range d.States() {
		if err := checkStateName(state); err != nil {
			return err
		}
		if _, ok := d.Accepting[state]; !ok {
			return fmt.Errorf("%w: state %s has no accepting flag", ErrInvalidDFA, state)
		}
		row := d.Transitions[state]
		if len(row) != len(Alphabet) {
			return fmt.Errorf("%w: state %s has %d transitions", ErrInvalidDFA, state, len(row))
		}
		for _, symbol := range Alphabet {
			target, ok := row[symbol]
			if !ok {
				return fmt.Errorf("%w: state %s has no transition on %s", ErrInvalidDFA, state, symbol)
			}
			if !d.HasState(target) {
				return fmt.Errorf("%w: transition %s/%s targets unknown state %s", ErrInvalidDFA, state, symbol, target)
			}
		}
	}
	if !d.HasState(d.Initial) {
		return fmt.Errorf("%w: initial state %q is not a state", ErrInvalidDFA, d.Initial)
	}
	return nil
}

// Key is the canonical encoding of d:
//
//	<initial>|<state>:<accepting>:<target on 0>,<target on 1>;...
//
// with states in canonical order. Two DFAs are structurally equal iff their
// keys are equal.
func (d DFA) Key() string {
	var b strings.Builder
	b.WriteString(string(d.Initial))
	b.WriteByte('|')
	for i, state := range d.States() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(string(state))
		if d.Accepting[state] {
			b.WriteString(":1:")
		} else {
			b.WriteString(":0:")
		}
		row := d.Transitions[state]
		for j, symbol := range Alphabet {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(row[symbol]))
		}
	}
	return b.String()
}

// EncodedSize is the length of the canonical encoding, used as a complexity
// measure when ranking otherwise equal automata.
func (d DFA) EncodedSize() int {
	return len(d.Key())
}

func (d DFA) Equal(other DFA) bool {
	return d.Key() == other.Key()
}

func (d DFA) String() string {
	return d.Key()
}

// MarshalText encodes the zero DFA as empty text so it decodes back.
func (d DFA) MarshalText() ([]byte, error) {
	if d.NumStates() == 0 {
		return []byte{}, nil
	}
	return []byte(d.Key()), nil
}

func (d *DFA) UnmarshalText(text []byte) error {
	parsed, err := ParseDFA(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDFA decodes the canonical encoding produced by Key and validates the
// result. An empty string decodes to the zero DFA.
func ParseDFA(encoded string) (DFA, error) {
	if encoded == "" {
		return DFA{}, nil
	}
	initial, body, ok := strings.Cut(encoded, "|")
	if !ok {
		return DFA{}, fmt.Errorf("%w: missing initial separator", ErrInvalidDFA)
	}
	out := DFA{
		Transitions: map[State]map[Symbol]State{},
		Accepting:   map[State]bool{},
		Initial:     State(initial),
	}
	for _, part := range strings.Split(body, ";") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return DFA{}, fmt.Errorf("%w: malformed state entry %q", ErrInvalidDFA, part)
		}
		state := State(fields[0])
		if out.HasState(state) {
			return DFA{}, fmt.Errorf("%w: duplicate state %s", ErrInvalidDFA, state)
		}
		switch fields[1] {
		case "0":
			out.Accepting[state] = false
		case "1":
			out.Accepting[state] = true
		default:
			return DFA{}, fmt.Errorf("%w: accepting flag %q for state %s", ErrInvalidDFA, fields[1], state)
		}
		targets := strings.Split(fields[2], ",")
		if len(targets) != len(Alphabet) {
			return DFA{}, fmt.Errorf("%w: state %s lists %d targets", ErrInvalidDFA, state, len(targets))
		}
		row := make(map[Symbol]State, len(Alphabet))
		for i, symbol := range Alphabet {
			row[symbol] = State(targets[i])
		}
		out.Transitions[state] = row
	}
	if err := out.Validate(); err != nil {
		return DFA{}, err
	}
	return out, nil
}

// SortStates orders generated qN names by index, then any other names
// lexically after them.
func SortStates(states []State) {
	sort.Slice(states, func(i, j int) bool {
		return StateLess(states[i], states[j])
	})
}

func StateLess(a, b State) bool {
	ai, aok := StateIndex(a)
	bi, bok := StateIndex(b)
	switch {
	case aok && bok:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

// StateIndex reports N for a state named qN.
func StateIndex(state State) (int, bool) {
	name := string(state)
	if len(name) < 2 || name[0] != 'q' {
		return 0, false
	}
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkStateName(state State) error {
	if state == "" {
		return fmt.Errorf("%w: empty state name", ErrInvalidDFA)
	}
	if strings.ContainsAny(string(state), "|:;,") {
		return fmt.Errorf("%w: state name %q contains a reserved character", ErrInvalidDFA, state)
	}
	return nil
}
