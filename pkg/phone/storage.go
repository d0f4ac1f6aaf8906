package phone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type storedNumber struct {
	Original string `json:"original"`
	Type     string `json:"type"`
}

// ToStorageForm encodes n as the JSON object kept in the phone column.
// Only the raw number and the kind are stored; the normalized form is derived
// again on load.
func ToStorageForm(n Number) string {
	b, _ := json.Marshal(storedNumber{Original: n.Raw, Type: n.Kind.Label()})
	return string(b)
}

// FromStorageForm decodes a phone column value. Values written by the older
// number-keyed schema hold the bare number and load as Home numbers.
func FromStorageForm(s, region string) (Number, error) {
	raw, kind := s, KindHome
	if trimmed := strings.TrimSpace(s); strings.HasPrefix(trimmed, "{") {
		if !gjson.Valid(trimmed) {
			return Number{}, fmt.Errorf("invalid stored phone %q", s)
		}
		raw = gjson.Get(trimmed, "original").String()
		kind = ParseKind(gjson.Get(trimmed, "type").String())
	}
	n, err := New(raw, kind, region)
	if err != nil {
		return Number{}, fmt.Errorf("stored phone %q: %w", s, err)
	}
	return n, nil
}
