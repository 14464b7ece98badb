package auth

import "encoding/json"

// PermissionsClaim is the custom claim listing the capabilities granted to the
// bearer, e.g. ["get:drinks-detail", "post:drinks"].
const PermissionsClaim = "permissions"

// Payload is the verified claim set of a bearer token. It is only ever built
// by a Verifier after signature and claims validation succeeded and must not
// be mutated afterwards.
type Payload map[string]any

// Subject returns the "sub" claim, or "" when absent.
func (p Payload) Subject() string {
	sub, _ := p["sub"].(string)
	return sub
}

// Permissions returns the string members of the permissions claim. The
// boolean reports whether the claim is present at all, independent of its
// shape or contents.
func (p Payload) Permissions() ([]string, bool) {
	raw, ok := p[PermissionsClaim]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, true
}

// Claims unmarshals the payload into ref.
func (p Payload) Claims(ref any) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}
