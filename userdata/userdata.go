// Package userdata loads tabular user-data files (header row = placeholder
// names) into an ordered set of per-user bindings, and substitutes
// {placeholder} tokens into route text using those bindings plus, at a
// later stage, the extracted-value context (execctx).
package userdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/BDNK1/httpdiff/errclass"
)

// UserData is one row of placeholder bindings, representing a simulated
// actor. Order is preserved (declaration/column order) even though lookups
// are by name, so callers needing a stable rendering order (e.g. a
// "available_params" error message) get one.
type UserData struct {
	order  []string
	values map[string]string
}

// New builds a UserData from an ordered slice of (name, value) pairs.
func New(names []string, values []string) UserData {
	u := UserData{
		order:  append([]string(nil), names...),
		values: make(map[string]string, len(names)),
	}
	for i, n := range names {
		if i < len(values) {
			u.values[n] = values[i]
		}
	}
	return u
}

// Get returns the bound value for a placeholder name.
func (u UserData) Get(name string) (string, bool) {
	v, ok := u.values[name]
	return v, ok
}

// Names returns placeholder names in column order.
func (u UserData) Names() []string {
	return append([]string(nil), u.order...)
}

// Key returns a stable identifier for this row, used to label a
// ComparisonResult's user_context and for deterministic test-run sorting.
func (u UserData) Key() string {
	if v, ok := u.values["userId"]; ok {
		return v
	}
	if len(u.order) == 0 {
		return ""
	}
	return u.values[u.order[0]]
}

// Load reads a CSV file whose header row names the placeholders and whose
// remaining rows are simulated-user bindings. All values are treated as
// strings per spec.md §6.
func Load(path string) ([]UserData, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.InvalidConfig(fmt.Sprintf("user data file not found: %s", path))
		}
		return nil, errclass.IOError(fmt.Errorf("opening user data %s: %w", path, err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, errclass.IOError(fmt.Errorf("user data %s has no header row", path))
	}
	if err != nil {
		return nil, errclass.IOError(fmt.Errorf("reading user data %s: %w", path, err))
	}

	var rows []UserData
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errclass.IOError(fmt.Errorf("reading user data %s: %w", path, err))
		}
		rows = append(rows, New(header, record))
	}

	return rows, nil
}

// placeholderRe matches the tokens substitution acts on: literal braces
// around an identifier made only of letters, digits, and underscore.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Resolver looks a placeholder name up, e.g. a UserData row, an execctx
// lookup, or a chain of both (user data first, then the extracted-value
// context — spec.md §4.2's precedence).
type Resolver interface {
	Resolve(name string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (string, bool)

func (f ResolverFunc) Resolve(name string) (string, bool) { return f(name) }

// Mode selects how a resolved value is encoded into the substituted text.
type Mode int

const (
	// ModeRaw substitutes the value verbatim — for headers, query values,
	// and bodies.
	ModeRaw Mode = iota
	// ModeURLEncode substitutes PercentEncode(value) — for path segments.
	ModeURLEncode
)

// Substitute replaces every {name} token in text using resolver, per mode.
// In strict mode, a token that resolves to nothing returns
// errclass.MissingPathParameter carrying the set of known names from
// knownNames (so the error message is actionable per spec.md §7). In
// non-strict mode an unresolved token is left unchanged.
func Substitute(text string, resolver Resolver, mode Mode, strict bool, knownNames []string) (string, error) {
	var substErr error
	out := placeholderRe.ReplaceAllStringFunc(text, func(tok string) string {
		if substErr != nil {
			return tok
		}
		name := tok[1 : len(tok)-1]
		value, ok := resolver.Resolve(name)
		if !ok {
			if strict {
				substErr = errclass.MissingPathParameter(name, knownNames)
			}
			return tok
		}
		if mode == ModeURLEncode {
			return PercentEncode(value)
		}
		return value
	})
	if substErr != nil {
		return "", substErr
	}
	return out, nil
}

// Placeholders returns every distinct {name} token referenced in text, in
// first-occurrence order — used by the dependency resolver to discover
// extraction-induced edges (spec.md §4.6) without substituting anything.
func Placeholders(text string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// unreservedByte reports whether b needs no percent-encoding under RFC 3986
// (ALPHA / DIGIT / "-" / "." / "_" / "~").
func unreservedByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	default:
		return false
	}
}

// PercentEncode percent-encodes every byte that isn't RFC 3986 unreserved,
// matching the original crate's urlencoding::encode behavior (used for path
// segments, spec.md §8's "urlencode(v)" property). Unlike net/url's PathEscape/QueryEscape, this never leaves
// reserved characters like '@' or ':' unescaped and never encodes spaces as
// '+'.
func PercentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedByte(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
