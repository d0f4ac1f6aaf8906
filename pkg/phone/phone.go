// Package phone holds the phone number value used by the directory: the
// number as the user typed it, a country-aware canonical form and the kind of
// line it belongs to.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the numbering plan used when callers do not pick one.
const DefaultRegion = "US"

// ErrFormat is returned when a number cannot even be attempted, i.e. the raw
// input is blank. Malformed but non-empty input never fails.
var ErrFormat = errors.New("phone number is empty")

// Kind is the line type shown next to a resolved caller.
type Kind int

const (
	KindHome Kind = iota
	KindCell
	KindWork
)

var kindLabels = [...]string{
	KindHome: "Home",
	KindCell: "Cell",
	KindWork: "Work",
}

// Kinds lists every kind in display order.
func Kinds() []Kind {
	return []Kind{KindHome, KindCell, KindWork}
}

// Label returns the human readable label, e.g. "Cell".
func (k Kind) Label() string {
	if k < 0 || int(k) >= len(kindLabels) {
		return kindLabels[KindHome]
	}
	return kindLabels[k]
}

func (k Kind) String() string { return k.Label() }

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Label()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// ParseKind maps a label back to its kind. Unknown labels are Home.
func ParseKind(label string) Kind {
	label = strings.TrimSpace(label)
	for _, k := range Kinds() {
		if strings.EqualFold(k.Label(), label) {
			return k
		}
	}
	return KindHome
}

// Number is an immutable phone number value.
type Number struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Kind       Kind   `json:"kind"`
}

// Normalize formats raw with the numbering plan of region. When the plan
// cannot make sense of the input the raw string is returned unchanged.
func Normalize(raw, region string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrFormat
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return raw, nil
	}
	formatted := phonenumbers.Format(num, phonenumbers.E164)
	if formatted == "" {
		return raw, nil
	}
	return formatted, nil
}

// New builds a Number for raw in the given region.
func New(raw string, kind Kind, region string) (Number, error) {
	normalized, err := Normalize(raw, region)
	if err != nil {
		return Number{}, err
	}
	return Number{Raw: raw, Normalized: normalized, Kind: kind}, nil
}

// IsZero reports whether n was never built.
func (n Number) IsZero() bool {
	return n.Raw == ""
}

func (n Number) String() string {
	return n.Raw
}
