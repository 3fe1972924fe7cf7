// Package vanilla holds the fingerprints of officially distributed game
// builds.
package vanilla

// Graphics framework a vanilla build was compiled against.
const (
	FNA = "FNA"
	XNA = "XNA"
)

// Entry describes a known vanilla build.
type Entry struct {
	Version  string
	Graphics string
}

var known = map[string]Entry{
	"f1c4967fa8f1f113858327590e274b69": {Version: "1.4.0.0", Graphics: FNA},
	"107cd146973f2c5ec9fb0b4f81c1588a": {Version: "1.4.0.0", Graphics: XNA},
}

// Lookup returns the vanilla build matching fingerprint, if any.
func Lookup(fingerprint string) (Entry, bool) {
	e, ok := known[fingerprint]
	return e, ok
}
