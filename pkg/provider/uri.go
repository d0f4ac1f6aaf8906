package provider

import (
	"net/url"
	"strings"
)

// Paths understood by the provider, relative to its authority.
const (
	DirectoriesPath  = "directories"
	PhoneLookupPath  = "phone_lookup"
	PrimaryPhotoPath = "photo/primary_photo"
)

// Route is the request shape a path maps to.
type Route int

const (
	RouteNone Route = iota
	RouteDirectories
	RoutePhoneLookup
	RoutePrimaryPhoto
)

func (r Route) String() string {
	switch r {
	case RouteDirectories:
		return "directories"
	case RoutePhoneLookup:
		return "phone_lookup"
	case RoutePrimaryPhoto:
		return "primary_photo"
	}
	return "none"
}

// Match classifies path. For phone lookups the second value is the decoded
// number segment; "phone_lookup/*" matches exactly one segment.
func Match(path string) (Route, string) {
	path = strings.Trim(path, "/")
	switch path {
	case DirectoriesPath:
		return RouteDirectories, ""
	case PrimaryPhotoPath:
		return RoutePrimaryPhoto, ""
	}

	rest, ok := strings.CutPrefix(path, PhoneLookupPath+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return RouteNone, ""
	}
	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}
	return RoutePhoneLookup, rest
}
