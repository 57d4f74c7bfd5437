package bot

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tasks lists the reward tasks every account should have finished and
// the check id the server expects for each.
type Tasks struct {
	Keys   []string
	Checks map[string]string
}

// LoadTasks reads tasks.json (a list of task keys) and checktasks.json
// (task key to check id).
func LoadTasks(tasksPath, checksPath string) (*Tasks, error) {
	t := &Tasks{}
	if err := readJSON(tasksPath, &t.Keys); err != nil {
		return nil, err
	}
	if err := readJSON(checksPath, &t.Checks); err != nil {
		return nil, err
	}
	return t, nil
}

// Missing returns the keys not yet marked done, in file order.
func (t *Tasks) Missing(done map[string]bool) []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, k := range t.Keys {
		if !done[k] {
			out = append(out, k)
		}
	}
	return out
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}
	return nil
}
