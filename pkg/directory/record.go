package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sw33tLie/callerid/pkg/phone"
)

// AppName is shown to the host as the directory name and prefixes every label.
const AppName = "Simple Caller ID App"

// ErrInvalidRecord is returned by the write path for records missing a name or
// a phone number.
var ErrInvalidRecord = errors.New("invalid record")

// Key identifies a person in the directory. There is at most one record per key.
type Key struct {
	FirstName string
	LastName  string
}

func (k Key) String() string {
	return k.FirstName + " " + k.LastName
}

// Record associates a person with a single phone number.
type Record struct {
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Phone     phone.Number `json:"phone"`
}

// NewRecord trims the names and validates the result.
func NewRecord(firstName, lastName string, number phone.Number) (Record, error) {
	r := Record{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Phone:     number,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (r Record) Validate() error {
	switch {
	case r.FirstName == "":
		return fmt.Errorf("%w: first name is empty", ErrInvalidRecord)
	case r.LastName == "":
		return fmt.Errorf("%w: last name is empty", ErrInvalidRecord)
	case r.Phone.IsZero():
		return fmt.Errorf("%w: phone number is empty", ErrInvalidRecord)
	}
	return nil
}

func (r Record) Key() Key {
	return Key{FirstName: r.FirstName, LastName: r.LastName}
}

func (r Record) FullName() string {
	return r.FirstName + " " + r.LastName
}

// DisplayLabel is the label a dialer shows under the caller's name,
// e.g. "Simple Caller ID App | Cell".
func (r Record) DisplayLabel() string {
	return AppName + " | " + r.Phone.Kind.Label()
}

// PrettyPrint renders the number line of a directory listing, e.g. "Cell: 555-1234".
func (r Record) PrettyPrint() string {
	return r.Phone.Kind.Label() + ": " + r.Phone.Raw
}

// Equal compares names and the phone as entered.
func (r Record) Equal(o Record) bool {
	return r.FirstName == o.FirstName &&
		r.LastName == o.LastName &&
		r.Phone.Raw == o.Phone.Raw &&
		r.Phone.Kind == o.Phone.Kind
}
