package task

import (
	"os"

	"gopkg.in/yaml.v3"
)

// debugSnapshot is the human-editable shape written by DumpDebugSnapshot,
// kept deliberately small: just enough for an operator to see what the
// queue thinks is pending without reaching for the jsonl file directly.
type debugSnapshot struct {
	Pending []debugTask `yaml:"pending"`
}

type debugTask struct {
	ID           string   `yaml:"id"`
	Description  string   `yaml:"description"`
	Mode         string   `yaml:"mode"`
	Priority     int      `yaml:"priority"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// DumpDebugSnapshot writes the current pending queue to a YAML file at
// path, for an operator to inspect without parsing the JSONL store.
func (q *Queue) DumpDebugSnapshot(path string) error {
	q.mu.Lock()
	snap := debugSnapshot{Pending: make([]debugTask, 0, len(q.pending))}
	for _, item := range q.pending {
		t := item.task
		snap.Pending = append(snap.Pending, debugTask{
			ID:           t.ID,
			Description:  t.Description,
			Mode:         string(t.Mode),
			Priority:     int(t.Priority),
			Dependencies: t.Dependencies,
		})
	}
	q.mu.Unlock()

	out, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
