package genotype

import (
	"fmt"

	"dfaevo/internal/model"
)

// StateName returns the lowest-indexed qN name not present in existing.
func StateName(existing []model.State) model.State {
	used := make(map[model.State]struct{}, len(existing))
	for _, state := range existing {
		used[state] = struct{}{}
	}
	for i := 0; ; i++ {
		candidate := model.State(fmt.Sprintf("q%d", i))
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}
