// Package auth decides who is making a request. A request is authenticated
// either by a server-held browser session or by a signed bearer token; both
// resolve to the same Identity so handlers never care which one was used.
package auth

// Provenance records which credential produced an Identity.
type Provenance string

const (
	ProvenanceSession Provenance = "session"
	ProvenanceToken   Provenance = "token"
)

// Identity 当前请求的已认证用户，只在单个请求内有效
type Identity struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Surname    string     `json:"surname"`
	Email      string     `json:"email"`
	Provenance Provenance `json:"provenance,omitempty"`
}

// FromSession reports whether the identity was resolved from a browser session.
func (i *Identity) FromSession() bool {
	return i != nil && i.Provenance == ProvenanceSession
}
