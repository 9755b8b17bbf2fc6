package loader

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/oakwood-commons/dview/pkg/view"
)

const maxExpandDepth = 20

// WithExpandEmbedded replaces string fields that hold a serialized JSON
// object or array, or a JWT, with the decoded value, so that a where-clause
// such as `_.meta.region == "eu"` can reach inside.
func WithExpandEmbedded() Option {
	return func(o *Options) {
		o.ExpandEmbedded = true
	}
}

// ExpandEmbedded returns a copy of rec with embedded payloads decoded,
// recursively. rec itself is not modified.
func ExpandEmbedded(rec view.Record) view.Record {
	out := make(view.Record, len(rec))
	for k, v := range rec {
		out[k] = expand(v, 0)
	}
	return out
}

func expand(v any, depth int) any {
	if depth > maxExpandDepth {
		return v
	}
	switch t := v.(type) {
	case string:
		if decoded, ok := decodeEmbedded(t); ok {
			return expand(decoded, depth+1)
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = expand(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = expand(val, depth+1)
		}
		return out
	default:
		return v
	}
}

// decodeEmbedded only accepts JSON containers and JWTs. Bare YAML is left
// alone since almost any string is valid YAML.
func decodeEmbedded(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if s[0] == '{' || s[0] == '[' {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, false
		}
		return v, true
	}
	if tok, ok := DecodeJWT(s); ok {
		return tok, true
	}
	return nil, false
}

// DecodeJWT splits a JWT (optionally prefixed with "Bearer ") into its
// decoded header and payload plus the raw signature. The signature is not
// verified.
func DecodeJWT(s string) (map[string]any, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "Bearer "))
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[2] == "" {
		return nil, false
	}
	header, ok := jwtSegment(parts[0])
	if !ok {
		return nil, false
	}
	payload, ok := jwtSegment(parts[1])
	if !ok {
		return nil, false
	}
	if _, err := base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
		return nil, false
	}
	return map[string]any{"header": header, "payload": payload, "signature": parts[2]}, true
}

func jwtSegment(seg string) (map[string]any, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}
