package automaton

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"dfaevo/internal/model"
)

// stateGraph is the transition structure of a DFA as a gonum directed graph.
// Node IDs are positions in the canonical state order. Self-loops are left
// out since simple.DirectedGraph rejects them and they never change
// reachability or component membership.
type stateGraph struct {
	g      *simple.DirectedGraph
	states []model.State
	index  map[model.State]int64
}

func newStateGraph(dfa model.DFA) stateGraph {
	states := dfa.States()
	sg := stateGraph{
		g:      simple.NewDirectedGraph(),
		states: states,
		index:  make(map[model.State]int64, len(states)),
	}
	for i, state := range states {
		sg.index[state] = int64(i)
		sg.g.AddNode(simple.Node(int64(i)))
	}
	for _, state := range states {
		from := sg.index[state]
		for _, symbol := range model.Alphabet {
			to, ok := sg.index[dfa.Transitions[state][symbol]]
			if !ok || to == from {
				continue
			}
			sg.g.SetEdge(sg.g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	return sg
}

func (sg stateGraph) node(state model.State) (graph.Node, bool) {
	id, ok := sg.index[state]
	if !ok {
		return nil, false
	}
	return sg.g.Node(id), true
}

// Reachable lists the states reachable from the initial state, in canonical
// order. The initial state is always included when it exists.
func Reachable(dfa model.DFA) []model.State {
	sg := newStateGraph(dfa)
	start, ok := sg.node(dfa.Initial)
	if !ok {
		return nil
	}
	out := make([]model.State, 0, len(sg.states))
	for _, state := range sg.states {
		if state == dfa.Initial {
			out = append(out, state)
			continue
		}
		target, _ := sg.node(state)
		if topo.PathExistsIn(sg.g, start, target) {
			out = append(out, state)
		}
	}
	return out
}

// Trim returns a copy of dfa without the states unreachable from its initial
// state. The accepted language is unchanged.
func Trim(dfa model.DFA) model.DFA {
	reachable := Reachable(dfa)
	keep := make(map[model.State]struct{}, len(reachable))
	for _, state := range reachable {
		keep[state] = struct{}{}
	}
	out := dfa.Clone()
	for state := range dfa.Transitions {
		if _, ok := keep[state]; ok {
			continue
		}
		delete(out.Transitions, state)
		delete(out.Accepting, state)
	}
	return out
}

// Components counts the strongly connected components of the transition
// graph.
func Components(dfa model.DFA) int {
	if dfa.NumStates() == 0 {
		return 0
	}
	return len(topo.TarjanSCC(newStateGraph(dfa).g))
}
