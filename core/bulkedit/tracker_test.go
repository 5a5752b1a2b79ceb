package bulkedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewEvent struct {
	entityID string
	changed  bool
}

type recordingView struct {
	rows     map[string]bool
	events   []viewEvent
	visible  bool
	count    int
	notices  []string
	levels   []Level
	controls int // number of SetSaveControls calls
}

func newRecordingView() *recordingView {
	return &recordingView{rows: make(map[string]bool)}
}

func (v *recordingView) SetRowChanged(entityID string, changed bool) {
	v.rows[entityID] = changed
	v.events = append(v.events, viewEvent{entityID, changed})
}

func (v *recordingView) SetSaveControls(visible bool, pendingCount int) {
	v.visible = visible
	v.count = pendingCount
	v.controls++
}

func (v *recordingView) Notify(level Level, msg string) {
	v.levels = append(v.levels, level)
	v.notices = append(v.notices, msg)
}

func TestTracker_RecordEdit(t *testing.T) {
	type edit struct{ id, field, value, orig string }
	tests := []struct {
		name      string
		edits     []edit
		wantCount int
		wantRows  []string
	}{
		{name: "no edits"},
		{
			name:      "single edit",
			edits:     []edit{{"42", "seatCount", "12", "10"}},
			wantCount: 1,
			wantRows:  []string{"42"},
		},
		{
			name:      "edit equal to original",
			edits:     []edit{{"42", "seatCount", "10", "10"}},
			wantCount: 0,
			wantRows:  []string{},
		},
		{
			name:      "same edit twice",
			edits:     []edit{{"42", "status", "APPROVED", "SUBMITTED"}, {"42", "status", "APPROVED", "SUBMITTED"}},
			wantCount: 1,
			wantRows:  []string{"42"},
		},
		{
			name:      "latest edit wins",
			edits:     []edit{{"42", "status", "APPROVED", "SUBMITTED"}, {"42", "status", "REJECTED", "SUBMITTED"}},
			wantCount: 1,
			wantRows:  []string{"42"},
		},
		{
			name: "several fields and rows",
			edits: []edit{
				{"1", "status", "APPROVED", "SUBMITTED"},
				{"2", "course", "B.Tech", "B.Sc"},
				{"1", "allocatedBranch", "CSE", ""},
			},
			wantCount: 3,
			wantRows:  []string{"1", "2"},
		},
		{
			name: "revert one of two fields keeps row",
			edits: []edit{
				{"1", "status", "APPROVED", "SUBMITTED"},
				{"1", "course", "B.Tech", "B.Sc"},
				{"1", "status", "SUBMITTED", "SUBMITTED"},
			},
			wantCount: 1,
			wantRows:  []string{"1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(nil, nil)
			for _, e := range tt.edits {
				tr.RecordEdit(e.id, e.field, e.value, e.orig)
			}
			assert.Equal(t, tt.wantCount, tr.PendingCount())
			assert.Equal(t, tt.wantCount > 0, tr.SaveControlsVisible())
			if tt.wantRows != nil {
				assert.Equal(t, tt.wantRows, tr.ChangedRows())
			}
		})
	}
}

func TestTracker_RecordEdit_Idempotent(t *testing.T) {
	once := NewTracker(nil, nil)
	once.RecordEdit("7", "status", "VERIFIED", "PENDING")

	twice := NewTracker(nil, nil)
	twice.RecordEdit("7", "status", "VERIFIED", "PENDING")
	twice.RecordEdit("7", "status", "VERIFIED", "PENDING")

	assert.Equal(t, once.Changes(), twice.Changes())
	assert.Equal(t, once.PendingCount(), twice.PendingCount())
}

func TestTracker_RecordEdit_KeepsFirstOriginal(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.RecordEdit("7", "status", "VERIFIED", "PENDING")
	// a later edit carrying another original does not move the baseline
	tr.RecordEdit("7", "status", "REJECTED", "VERIFIED")

	changes := tr.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "PENDING", changes[0].OriginalValue)
	assert.Equal(t, "REJECTED", changes[0].NewValue)

	tr.RecordEdit("7", "status", "PENDING", "VERIFIED")
	assert.Equal(t, 0, tr.PendingCount())
}

func TestTracker_RecordEdit_PanicsOnMissingKey(t *testing.T) {
	tr := NewTracker(nil, nil)
	assert.Panics(t, func() { tr.RecordEdit("", "status", "x", "y") })
	assert.Panics(t, func() { tr.RecordEdit("1", "", "x", "y") })
	assert.Equal(t, 0, tr.PendingCount())
}

func TestTracker_RevertClearsRowMarker(t *testing.T) {
	view := newRecordingView()
	tr := NewTracker(nil, view)

	tr.RecordEdit("42", "seatCount", "12", "10")
	assert.Equal(t, 1, tr.PendingCount())
	assert.True(t, tr.HasPendingChangesFor("42"))
	assert.True(t, view.rows["42"])
	assert.True(t, view.visible)
	assert.Equal(t, 1, view.count)

	tr.RecordEdit("42", "seatCount", "10", "10")
	assert.Equal(t, 0, tr.PendingCount())
	assert.False(t, tr.HasPendingChangesFor("42"))
	assert.False(t, view.rows["42"])
	assert.False(t, view.visible)
	assert.Equal(t, 0, view.count)
}

func TestTracker_RevertOnlyAffectsOwnEntity(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.RecordEdit("1", "status", "APPROVED", "SUBMITTED")
	tr.RecordEdit("2", "status", "APPROVED", "SUBMITTED")
	tr.RecordEdit("1", "course", "B.Tech", "B.Sc")

	tr.RecordEdit("1", "status", "SUBMITTED", "SUBMITTED")
	assert.True(t, tr.HasPendingChangesFor("1"))

	tr.RecordEdit("1", "course", "B.Sc", "B.Sc")
	assert.False(t, tr.HasPendingChangesFor("1"))
	assert.True(t, tr.HasPendingChangesFor("2"))
	assert.Equal(t, 1, tr.PendingCount())
}

func TestTracker_PendingCountMatchesDivergingKeys(t *testing.T) {
	tr := NewTracker(nil, nil)
	current := map[Key]string{}
	original := map[Key]string{}

	edits := []struct{ id, field, value string }{
		{"1", "status", "A"}, {"1", "status", "B"}, {"2", "status", "A"},
		{"1", "status", ""}, {"3", "course", "X"}, {"2", "status", ""},
		{"3", "course", "Y"}, {"1", "course", "Z"}, {"3", "course", ""},
	}
	for _, e := range edits {
		key := Key{EntityID: e.id, Field: e.field}
		original[key] = ""
		current[key] = e.value
		tr.RecordEdit(e.id, e.field, e.value, "")

		var diverging int
		for k, v := range current {
			if v != original[k] {
				diverging++
			}
		}
		assert.Equal(t, diverging, tr.PendingCount(), "after edit %+v", e)
	}
}

func TestTracker_Serialize(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.RecordEdit("7", "status", "PAID", "PENDING")
	tr.RecordEdit("9", "status", "PENDING", "UNPAID")

	records, err := tr.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Index: 0, EntityID: "7", Field: "status", Value: "PAID"},
		{Index: 1, EntityID: "9", Field: "status", Value: "PENDING"},
	}, records)
}

func TestTracker_Serialize_Completeness(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.RecordEdit("1", "status", "APPROVED", "SUBMITTED")
	tr.RecordEdit("2", "course", "B.Tech", "B.Sc")
	tr.RecordEdit("1", "status", "REJECTED", "SUBMITTED")
	tr.RecordEdit("3", "allocatedBranch", "ECE", "")
	tr.RecordEdit("2", "course", "B.Sc", "B.Sc")

	records, err := tr.Serialize()
	require.NoError(t, err)
	require.Len(t, records, tr.PendingCount())

	seen := make(map[Key]bool)
	for i, rec := range records {
		assert.Equal(t, i, rec.Index)
		key := Key{EntityID: rec.EntityID, Field: rec.Field}
		assert.False(t, seen[key], "duplicate record %+v", rec)
		seen[key] = true
	}
	assert.Equal(t, []Record{
		{Index: 0, EntityID: "1", Field: "status", Value: "REJECTED"},
		{Index: 1, EntityID: "3", Field: "allocatedBranch", Value: "ECE"},
	}, records)
}

func TestTracker_Serialize_Empty(t *testing.T) {
	tr := NewTracker(nil, nil)
	records, err := tr.Serialize()
	assert.Equal(t, ErrNoPendingChanges, err)
	assert.Empty(t, records)

	tr.RecordEdit("1", "status", "A", "B")
	tr.RecordEdit("1", "status", "B", "B")
	_, err = tr.Serialize()
	assert.Equal(t, ErrNoPendingChanges, err)
}

func TestTracker_CommitAndReset(t *testing.T) {
	view := newRecordingView()
	tr := NewTracker(nil, view)
	tr.RecordEdit("3", "amount", "5000", "4500")
	tr.RecordEdit("4", "amount", "100", "0")

	tr.CommitAndReset()
	assert.Equal(t, 0, tr.PendingCount())
	assert.False(t, tr.SaveControlsVisible())
	assert.False(t, tr.HasPendingChangesFor("3"))
	assert.False(t, tr.HasPendingChangesFor("4"))
	assert.False(t, view.rows["3"])
	assert.False(t, view.rows["4"])
	assert.False(t, view.visible)
	assert.Empty(t, tr.ChangedRows())

	base, ok := tr.Baseline("3", "amount")
	assert.True(t, ok)
	assert.Equal(t, "5000", base)

	// the committed value is the new baseline, even when callers still pass the stale original
	tr.RecordEdit("3", "amount", "5000", "4500")
	assert.Equal(t, 0, tr.PendingCount())

	tr.RecordEdit("3", "amount", "4500", "4500")
	assert.Equal(t, 1, tr.PendingCount())
	changes := tr.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "5000", changes[0].OriginalValue)
}

func TestTracker_SnapshotBaseline(t *testing.T) {
	snap := NewSnapshot()
	snap.Set("42", "seatCount", "10")
	tr := NewTracker(snap, nil)

	tr.RecordEdit("42", "seatCount", "12", "10")
	assert.Equal(t, 1, tr.PendingCount())
	tr.RecordEdit("42", "seatCount", "10", "")
	assert.Equal(t, 0, tr.PendingCount())

	tr.RecordEdit("42", "seatCount", "11", "10")
	tr.CommitAndReset()
	val, _ := snap.Get("42", "seatCount")
	assert.Equal(t, "11", val)
}

func TestScenarios(t *testing.T) {
	t.Run("A: edit and revert", func(t *testing.T) {
		view := newRecordingView()
		tr := NewTracker(nil, view)
		tr.RecordEdit("42", "seatCount", "12", "10")
		assert.Equal(t, 1, tr.PendingCount())
		tr.RecordEdit("42", "seatCount", "10", "10")
		assert.Equal(t, 0, tr.PendingCount())
		assert.False(t, view.rows["42"])
	})

	t.Run("B: serialize in edit order", func(t *testing.T) {
		tr := NewTracker(nil, nil)
		tr.RecordEdit("7", "status", "PAID", "PENDING")
		tr.RecordEdit("9", "status", "PENDING", "")
		records, err := tr.Serialize()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 0, records[0].Index)
		assert.Equal(t, "7", records[0].EntityID)
		assert.Equal(t, 1, records[1].Index)
		assert.Equal(t, "9", records[1].EntityID)
	})

	t.Run("C: nothing to save", func(t *testing.T) {
		tr := NewTracker(nil, nil)
		records, err := tr.Serialize()
		assert.Empty(t, records)
		assert.Equal(t, ErrNoPendingChanges, err)
	})

	t.Run("D: commit moves baseline", func(t *testing.T) {
		tr := NewTracker(nil, nil)
		tr.RecordEdit("3", "amount", "5000", "4000")
		tr.CommitAndReset()
		tr.RecordEdit("3", "amount", "5000", "4000")
		assert.Equal(t, 0, tr.PendingCount())
	})
}
