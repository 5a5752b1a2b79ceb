// Package bulkedit tracks the unsaved edits of a bulk-edit view (seat & payment management)
// and turns them into a single indexed form submission.
package bulkedit

import (
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

// ErrNoPendingChanges is returned when a save is requested while nothing diverges from the baseline.
var ErrNoPendingChanges = errors.New("no changes to save")

type (
	// Key identifies one editable field of one row.
	Key struct {
		EntityID string
		Field    string
	}

	// PendingChange is one user edit not yet persisted.
	PendingChange struct {
		EntityID      string `json:"entity_id"`
		Field         string `json:"field"`
		NewValue      string `json:"new_value"`
		OriginalValue string `json:"original_value"`
	}

	// View receives the state derived from the pending changes.
	// All calls happen synchronously, right after the mutation that caused them.
	View interface {
		SetRowChanged(entityID string, changed bool)
		SetSaveControls(visible bool, pendingCount int)
		Notify(level Level, msg string)
	}
)

func (c PendingChange) Key() Key { return Key{EntityID: c.EntityID, Field: c.Field} }

// Tracker keeps the set of fields whose current value differs from their baseline.
// It is owned by a single bulk-edit session and is not safe for concurrent use.
type Tracker struct {
	baseline *Snapshot
	keys     []Key // first-edit order
	changes  map[Key]*PendingChange
	rows     map[string]int // pending fields per entity
	view     View
}

// NewTracker returns an empty Tracker resolving original values through `baseline`.
// A nil baseline starts from an empty Snapshot; a nil view is allowed.
func NewTracker(baseline *Snapshot, view View) *Tracker {
	if baseline == nil {
		baseline = NewSnapshot()
	}
	return &Tracker{
		baseline: baseline,
		changes:  make(map[Key]*PendingChange),
		rows:     make(map[string]int),
		view:     view,
	}
}

// RecordEdit registers the value currently entered for (entityID, field).
//
// The baseline of a field is captured once: from the pending entry if there is one, else from the
// snapshot, else from `originalValue` (which is then kept in the snapshot).
// Editing back to the baseline removes the entry; any other value inserts or overwrites it.
// Empty entityID or field is a programming error and panics.
func (t *Tracker) RecordEdit(entityID, field, newValue, originalValue string) {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(entityID, "entityID"),
		vala.StringNotEmpty(field, "field"),
	).CheckAndPanic()

	key := Key{EntityID: entityID, Field: field}
	orig := t.originalFor(key, originalValue)

	if newValue == orig {
		t.remove(key)
	} else if change, ok := t.changes[key]; ok {
		change.NewValue = newValue
	} else {
		t.keys = append(t.keys, key)
		t.changes[key] = &PendingChange{
			EntityID:      entityID,
			Field:         field,
			NewValue:      newValue,
			OriginalValue: orig,
		}
		t.rows[entityID]++
	}
	t.refresh(entityID)
}

func (t *Tracker) originalFor(key Key, supplied string) string {
	if change, ok := t.changes[key]; ok {
		return change.OriginalValue
	}
	if orig, ok := t.baseline.Get(key.EntityID, key.Field); ok {
		return orig
	}
	t.baseline.Set(key.EntityID, key.Field, supplied)
	return supplied
}

func (t *Tracker) remove(key Key) {
	if _, ok := t.changes[key]; !ok {
		return
	}
	delete(t.changes, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	if t.rows[key.EntityID]--; t.rows[key.EntityID] <= 0 {
		delete(t.rows, key.EntityID)
	}
}

// refresh pushes the derived state of `entityID` and of the save controls to the view.
func (t *Tracker) refresh(entityID string) {
	if t.view == nil {
		return
	}
	t.view.SetRowChanged(entityID, t.HasPendingChangesFor(entityID))
	t.view.SetSaveControls(t.SaveControlsVisible(), t.PendingCount())
}

// HasPendingChangesFor reports whether any field of `entityID` is pending.
func (t *Tracker) HasPendingChangesFor(entityID string) bool {
	return t.rows[entityID] > 0
}

func (t *Tracker) PendingCount() int { return len(t.changes) }

func (t *Tracker) SaveControlsVisible() bool { return t.PendingCount() > 0 }

// ChangedRows returns the entities currently flagged as changed, in first-edit order.
func (t *Tracker) ChangedRows() []string {
	rows := make([]string, 0, len(t.rows))
	seen := make(map[string]bool, len(t.rows))
	for _, key := range t.keys {
		if !seen[key.EntityID] {
			seen[key.EntityID] = true
			rows = append(rows, key.EntityID)
		}
	}
	return rows
}

// Changes returns a copy of the pending changes in first-edit order.
func (t *Tracker) Changes() []PendingChange {
	changes := make([]PendingChange, 0, len(t.keys))
	for _, key := range t.keys {
		changes = append(changes, *t.changes[key])
	}
	return changes
}

// Baseline returns the value (entityID, field) is compared against.
func (t *Tracker) Baseline(entityID, field string) (string, bool) {
	if change, ok := t.changes[Key{EntityID: entityID, Field: field}]; ok {
		return change.OriginalValue, true
	}
	return t.baseline.Get(entityID, field)
}

// Serialize returns one Record per pending change, indexed from 0 in first-edit order.
// It returns ErrNoPendingChanges when there is nothing to submit.
func (t *Tracker) Serialize() ([]Record, error) {
	if len(t.keys) == 0 {
		return nil, ErrNoPendingChanges
	}
	records := make([]Record, 0, len(t.keys))
	for i, key := range t.keys {
		change := t.changes[key]
		records = append(records, Record{
			Index:    i,
			EntityID: change.EntityID,
			Field:    change.Field,
			Value:    change.NewValue,
		})
	}
	return records, nil
}

// CommitAndReset must be called once the submission of the pending changes succeeded:
// every new value becomes its field's baseline, then all pending changes & row markers are cleared.
func (t *Tracker) CommitAndReset() {
	rows := t.ChangedRows()
	for _, key := range t.keys {
		t.baseline.Set(key.EntityID, key.Field, t.changes[key].NewValue)
	}
	t.keys = nil
	t.changes = make(map[Key]*PendingChange)
	t.rows = make(map[string]int)

	if t.view == nil {
		return
	}
	for _, entityID := range rows {
		t.view.SetRowChanged(entityID, false)
	}
	t.view.SetSaveControls(false, 0)
}
