package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]Operator
}{
	m: builtinOperatorMap(),
}

func builtinOperatorMap() map[string]Operator {
	return map[string]Operator{
		OpChangeTransition: ChangeTransition{},
		OpChangeAccepting:  ChangeAccepting{},
		OpChangeInitial:    ChangeInitial{},
		OpAddState:         AddState{},
		OpRemoveState:      RemoveState{},
	}
}

// RegisterOperator makes op resolvable by name, next to the built-in
// structural operators.
func RegisterOperator(name string, op Operator) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if op == nil {
		return errors.New("operator is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.m[name] = op
	return nil
}

func ResolveOperator(name string) (Operator, error) {
	operatorRegistry.mu.RLock()
	op, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return op, nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.m = builtinOperatorMap()
}
