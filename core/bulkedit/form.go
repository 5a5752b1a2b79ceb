package bulkedit

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	changesPrefix = "changes["
	fieldAttr     = "field"
	valueAttr     = "value"
)

// ErrMalformedChange is returned when a `changes[...]` form parameter cannot be parsed.
var ErrMalformedChange = errors.New("malformed change parameter")

var (
	// SeatForm names the entity key of the seat management page.
	SeatForm = FormNames{EntityKey: "appId"}
	// PaymentForm names the entity key of the payment management page.
	PaymentForm = FormNames{EntityKey: "paymentId", Changes: "payment status changes"}
)

// FormNames configures the indexed form field names of a bulk-edit page.
type FormNames struct {
	EntityKey string
	Changes   string // what the page calls its changes in notices; "changes" when empty
}

// Record is one serialized pending change.
type Record struct {
	Index    int    `json:"index"`
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

func fieldName(index int, attr string) string {
	return changesPrefix + strconv.Itoa(index) + "]." + attr
}

// Encode renders `records` as `changes[i].<EntityKey>`, `changes[i].field` & `changes[i].value` form fields.
func Encode(records []Record, names FormNames) url.Values {
	form := make(url.Values, len(records)*3)
	for _, rec := range records {
		form.Set(fieldName(rec.Index, names.EntityKey), rec.EntityID)
		form.Set(fieldName(rec.Index, fieldAttr), rec.Field)
		form.Set(fieldName(rec.Index, valueAttr), rec.Value)
	}
	return form
}

// Decode rebuilds the records submitted by Encode, ordered by index.
// Other parameters are ignored, and so are indices missing one of the entity key, field or value.
func Decode(form url.Values, names FormNames) ([]Record, error) {
	groups := make(map[int]map[string]string)
	for name, vals := range form {
		if !strings.HasPrefix(name, changesPrefix) {
			continue
		}
		idx, attr, err := parseName(name)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			continue
		}
		group, ok := groups[idx]
		if !ok {
			group = make(map[string]string, 3)
			groups[idx] = group
		}
		group[attr] = vals[0]
	}

	indices := make([]int, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	records := make([]Record, 0, len(indices))
	for _, idx := range indices {
		group := groups[idx]
		entityID, okID := group[names.EntityKey]
		field, okFld := group[fieldAttr]
		value, okVal := group[valueAttr]
		if !(okID && okFld && okVal) {
			continue
		}
		records = append(records, Record{Index: idx, EntityID: entityID, Field: field, Value: value})
	}
	return records, nil
}

// parseName splits `changes[<idx>].<attr>`.
func parseName(name string) (int, string, error) {
	end := strings.IndexByte(name, ']')
	if end < 0 {
		return 0, "", errors.Wrap(ErrMalformedChange, name)
	}
	idx, err := strconv.Atoi(name[len(changesPrefix):end])
	if err != nil || idx < 0 {
		return 0, "", errors.Wrap(ErrMalformedChange, name)
	}
	rest := name[end+1:]
	if !strings.HasPrefix(rest, ".") || len(rest) == 1 {
		return 0, "", errors.Wrap(ErrMalformedChange, name)
	}
	return idx, rest[1:], nil
}
