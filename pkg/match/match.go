// Package match resolves an incoming phone number against the directory.
package match

import (
	"context"
	"iter"
	"strings"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
)

// Scanner yields every record in directory order. *directory.Directory satisfies it.
type Scanner interface {
	Scan() iter.Seq[directory.Record]
}

type Engine struct {
	src    Scanner
	region string
}

func New(src Scanner, region string) *Engine {
	if region == "" {
		region = phone.DefaultRegion
	}
	return &Engine{src: src, region: region}
}

// Resolve returns the first record, in directory order, whose phone is
// equivalent to raw. When several records share a number the earlier one
// wins. Blank or malformed input simply resolves to nothing.
func (e *Engine) Resolve(ctx context.Context, raw string) (directory.Record, bool) {
	if strings.TrimSpace(raw) == "" {
		return directory.Record{}, false
	}
	incoming, err := phone.New(raw, phone.KindHome, e.region)
	if err != nil {
		return directory.Record{}, false
	}
	for r := range e.src.Scan() {
		if ctx.Err() != nil {
			return directory.Record{}, false
		}
		if phone.Equivalent(r.Phone, incoming) {
			return r, true
		}
	}
	return directory.Record{}, false
}
