package bulkedit

import "fmt"

// Level is the severity of a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// NoChangesMessage is the notice shown when a save is requested without pending changes.
const NoChangesMessage = "No changes to save!"

// Outcome summarizes a bulk update: how many changes were received and how many were saved.
type Outcome struct {
	Total int `json:"total"`
	Saved int `json:"saved"`
}

// Succeeded reports whether there was something to save and all of it was saved.
func (o Outcome) Succeeded() bool {
	return o.Total > 0 && o.Saved == o.Total
}

func (o Outcome) Level() Level {
	switch {
	case o.Total == 0:
		return LevelInfo
	case o.Saved == o.Total:
		return LevelSuccess
	default:
		return LevelWarning
	}
}

func (o Outcome) Message() string {
	return o.MessageFor(FormNames{})
}

// MessageFor words the outcome the way the page of `names` does.
// Only the full-success notice differs between pages.
func (o Outcome) MessageFor(names FormNames) string {
	switch {
	case o.Total == 0:
		return NoChangesMessage
	case o.Saved == o.Total:
		changes := names.Changes
		if changes == "" {
			changes = "changes"
		}
		return fmt.Sprintf("All %d %s saved successfully!", o.Saved, changes)
	default:
		return fmt.Sprintf("%d out of %d changes saved successfully.", o.Saved, o.Total)
	}
}
