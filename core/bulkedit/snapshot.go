package bulkedit

// Snapshot holds the baseline value of every editable field of a bulk-edit view.
// It is captured when the view loads and updated on each successful save.
type Snapshot struct {
	values map[Key]string
}

func NewSnapshot() *Snapshot {
	return &Snapshot{values: make(map[Key]string)}
}

func (s *Snapshot) Set(entityID, field, value string) {
	s.values[Key{EntityID: entityID, Field: field}] = value
}

func (s *Snapshot) Get(entityID, field string) (string, bool) {
	val, ok := s.values[Key{EntityID: entityID, Field: field}]
	return val, ok
}

func (s *Snapshot) Len() int { return len(s.values) }

// Fields returns the snapshot as {entityID: {field: value}}, e.g. for JSON rendering.
func (s *Snapshot) Fields() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for key, val := range s.values {
		fields, ok := out[key.EntityID]
		if !ok {
			fields = make(map[string]string)
			out[key.EntityID] = fields
		}
		fields[key.Field] = val
	}
	return out
}
