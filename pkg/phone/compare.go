package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// MinMatch is the shortest common suffix, in digits, for two differently
// written numbers to be treated as the same subscriber.
const MinMatch = 7

// International dialing prefixes that may sit in front of a country code.
var intlPrefixes = []string{"011", "00"}

// Equivalent reports whether a and b reach the same subscriber. Both the raw
// and the normalized forms take part, so formatting, punctuation and a
// country code present on only one side do not matter.
func Equivalent(a, b Number) bool {
	for _, x := range [...]string{a.Raw, a.Normalized} {
		for _, y := range [...]string{b.Raw, b.Normalized} {
			if x == "" || y == "" {
				continue
			}
			if looseMatch(x, y) {
				return true
			}
		}
	}
	return false
}

// EquivalentRaw compares a stored number against an incoming, un-normalized
// one. Blank input never matches.
func EquivalentRaw(n Number, raw, region string) bool {
	incoming, err := New(raw, KindHome, region)
	if err != nil {
		return false
	}
	return Equivalent(n, incoming)
}

// looseMatch compares digit strings from the least significant end.
func looseMatch(a, b string) bool {
	da := phonenumbers.NormalizeDigitsOnly(a)
	db := phonenumbers.NormalizeDigitsOnly(b)
	if da == "" || db == "" {
		ta, tb := strings.TrimSpace(a), strings.TrimSpace(b)
		return da == "" && db == "" && ta != "" && ta == tb
	}
	if da == db {
		return true
	}

	i, j := len(da)-1, len(db)-1
	for i >= 0 && j >= 0 && da[i] == db[j] {
		i--
		j--
	}
	if len(da)-1-i < MinMatch {
		return false
	}

	restA, restB := da[:i+1], db[:j+1]
	if restA == "" || restB == "" {
		return true
	}
	return (isTrunkPrefix(restA) && isCountryPrefix(restB)) ||
		(isTrunkPrefix(restB) && isCountryPrefix(restA))
}

func isTrunkPrefix(s string) bool {
	return s == "0"
}

// isCountryPrefix reports whether s is a known country calling code,
// optionally dialed behind an international prefix.
func isCountryPrefix(s string) bool {
	if isCountryCode(s) {
		return true
	}
	for _, p := range intlPrefixes {
		if rest, ok := strings.CutPrefix(s, p); ok && isCountryCode(rest) {
			return true
		}
	}
	return false
}

func isCountryCode(s string) bool {
	if s == "" || len(s) > 3 || s[0] == '0' {
		return false
	}
	cc, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return phonenumbers.GetRegionCodeForCountryCode(cc) != "ZZ"
}
