// Package demoanchor provides the concrete anchor payload anchorctl and
// anchor-shell operate on. The store package treats anchors as opaque
// (see store.Codec); a CLI still needs *some* concrete type to read and
// write, so this package supplies a minimal stand-in rather than asking
// the store package to assume one.
package demoanchor

// Anchor is a minimal identity record: a human-readable label and a set
// of registered device aliases.
type Anchor struct {
	Label   string
	Devices []string
}

// New returns an anchor with no devices and the given label.
func New(label string) Anchor {
	return Anchor{Label: label}
}
