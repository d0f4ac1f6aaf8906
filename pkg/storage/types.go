package storage

import (
	"time"

	"github.com/sw33tLie/callerid/pkg/phone"
)

// KindStats summarizes the directory for one phone kind.
type KindStats struct {
	Kind        phone.Kind
	Count       int
	LastUpdated time.Time
}
