// Package seed bundles the dataset used when no persisted document exists.
package seed

import _ "embed"

//go:embed default.json
var defaultDocument []byte

// Default returns a copy of the bundled document.
func Default() []byte {
	out := make([]byte, len(defaultDocument))
	copy(out, defaultDocument)
	return out
}
