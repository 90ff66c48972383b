package authsdk

import "path"

// Navigator abstracts the host's notion of "current location" so Logout can
// send the user back to the login surface.
type Navigator interface {
	// CurrentPath returns the path of the surface the user is on.
	CurrentPath() string

	// Navigate moves the user to p.
	Navigate(p string)
}

// NopNavigator never moves. Its CurrentPath is always empty.
type NopNavigator struct{}

func (NopNavigator) CurrentPath() string { return "" }
func (NopNavigator) Navigate(string)     {}

// samePath reports whether a and b name the same location once cleaned.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return path.Clean("/"+a) == path.Clean("/"+b)
}
