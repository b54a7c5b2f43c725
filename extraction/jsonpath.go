package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// jsonPathTokenRe splits a pattern into its selector tokens. Supported
// grammar (deliberately narrower than full JSONPath — spec.md §9 flags this
// as an Open Question the implementer must document rather than claim full
// JSONPath support):
//
//	$                 optional root marker, ignored
//	.name             object field access
//	["name"]          object field access (quoted)
//	[i]               array index access
//	[*]               array wildcard — resolves to the first element
var jsonPathTokenRe = regexp.MustCompile(`\.([A-Za-z0-9_]+)|\["([^"]+)"\]|\[(\d+)\]|\[\*\]`)

// EvalJSONPath evaluates the supported subset of pattern against a parsed
// JSON body and returns the matched value, stringified; an object or array
// match is rendered with fmt's %v rather than reported as not found.
func EvalJSONPath(body []byte, pattern string) (string, bool, error) {
	container, err := gabs.ParseJSON(body)
	if err != nil {
		return "", false, fmt.Errorf("body is not valid JSON: %w", err)
	}

	expr := strings.TrimPrefix(strings.TrimSpace(pattern), "$")
	cur := container

	matches := jsonPathTokenRe.FindAllStringSubmatchIndex(expr, -1)
	pos := 0
	for _, m := range matches {
		if m[0] != pos {
			return "", false, fmt.Errorf("invalid JSONPath segment at offset %d in %q", pos, pattern)
		}
		token := expr[m[0]:m[1]]
		pos = m[1]

		switch {
		case strings.HasPrefix(token, "."):
			cur = cur.Search(token[1:])
		case strings.HasPrefix(token, `["`):
			name := token[2 : len(token)-2]
			cur = cur.Search(name)
		case token == "[*]":
			children, err := cur.Children()
			if err != nil || len(children) == 0 {
				return "", false, nil
			}
			cur = children[0]
		default: // [i]
			idxStr := token[1 : len(token)-1]
			idx, _ := strconv.Atoi(idxStr)
			cur = cur.Index(idx)
		}

		if cur == nil {
			return "", false, nil
		}
	}
	if pos != len(expr) {
		return "", false, fmt.Errorf("unparseable JSONPath trailer %q in %q", expr[pos:], pattern)
	}

	data := cur.Data()
	if data == nil {
		return "", false, nil
	}
	return stringifyScalar(data)
}

func stringifyScalar(v any) (string, bool, error) {
	switch t := v.(type) {
	case string:
		return t, true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true, nil
	default:
		// Non-scalar (object/array) match: still report it by value so a
		// caller can at least see what was there, rather than silently
		// treating a structural match as "not found".
		return fmt.Sprintf("%v", t), true, nil
	}
}
