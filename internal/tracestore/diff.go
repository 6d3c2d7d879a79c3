package tracestore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/pkg/diff"
)

// KeyChanges lists the blackboard keys that differ between two snapshots.
type KeyChanges struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the snapshots hold the same data.
func (c KeyChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// CompareKeys reports which keys were added, removed or rewritten from
// before to after. Each list is sorted.
func CompareKeys(before, after blackboard.TraceSnapshot) KeyChanges {
	var changes KeyChanges
	for key, value := range after.Data {
		prev, ok := before.Data[key]
		switch {
		case !ok:
			changes.Added = append(changes.Added, key)
		case !reflect.DeepEqual(prev, value):
			changes.Changed = append(changes.Changed, key)
		}
	}
	for key := range before.Data {
		if _, ok := after.Data[key]; !ok {
			changes.Removed = append(changes.Removed, key)
		}
	}
	sort.Strings(changes.Added)
	sort.Strings(changes.Removed)
	sort.Strings(changes.Changed)
	return changes
}

// Diff renders the data of two snapshots as indented JSON and diffs it line
// by line, keeping context unchanged lines around each change.
func Diff(before, after blackboard.TraceSnapshot, context int) (string, error) {
	a, err := json.MarshalIndent(before.Data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot %d: %w", before.Seq, err)
	}
	b, err := json.MarshalIndent(after.Data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot %d: %w", after.Seq, err)
	}
	return diff.Unified(string(a)+"\n", string(b)+"\n", diff.Options{
		BeforeLabel: snapshotLabel(before),
		AfterLabel:  snapshotLabel(after),
		Context:     context,
	}), nil
}

func snapshotLabel(s blackboard.TraceSnapshot) string {
	return fmt.Sprintf("#%d rev %d %s", s.Seq, s.Revision, s.Note)
}
