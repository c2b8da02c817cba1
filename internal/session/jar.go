package session

import (
	"net/http"
	"time"
)

// Cookie is a single inbound (name, value) pair read from the request.
type Cookie struct {
	Name  string
	Value string
}

// SetCookie is a staged outbound cookie mutation. A MaxAge < 0 deletes the
// cookie on the client.
type SetCookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int
	Expires  time.Time
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// Jar is the cookie-backed session store for a single request/response pair.
//
// It is the one mechanism through which session token material moves across
// the network boundary: the routing gate and every auth handler read inbound
// cookies and stage outbound mutations through the same Jar, so no code path
// can commit a session side effect without the matching cookie write.
//
// A Jar is exclusively owned by its request's lifetime. It is not safe for
// concurrent use and must never be shared across requests.
type Jar struct {
	req *http.Request

	read     []Cookie
	readDone bool

	staged []SetCookie
	// written marks how much of staged has been applied to a response,
	// so Apply is idempotent per staged mutation.
	written int
}

// NewJar creates a Jar bound to the given request.
func NewJar(r *http.Request) *Jar {
	return &Jar{req: r}
}

// Read returns the inbound cookies in header order. The request is consulted
// once; subsequent calls return the same materialized slice.
func (j *Jar) Read() []Cookie {
	if j.readDone {
		return j.read
	}
	j.readDone = true

	for _, c := range j.req.Cookies() {
		j.read = append(j.read, Cookie{Name: c.Name, Value: c.Value})
	}
	return j.read
}

// Get returns the value of the named inbound cookie, if present.
func (j *Jar) Get(name string) (string, bool) {
	for _, c := range j.Read() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Stage queues an outbound cookie mutation for the eventual response.
// Multiple stages for the same name overwrite in call order: the last
// write wins when the mutations are applied.
func (j *Jar) Stage(c SetCookie) {
	j.staged = append(j.staged, c)
}

// Pending returns the staged-but-unapplied mutations after last-write-wins
// collapsing, in the order of each name's final write.
func (j *Jar) Pending() []SetCookie {
	return collapse(j.staged[j.written:])
}

// HasPending reports whether any staged mutation has not yet been applied.
func (j *Jar) HasPending() bool {
	return j.written < len(j.staged)
}

// Apply writes all pending mutations onto the response headers. It is
// idempotent: mutations already applied are not written again, and calling
// Apply with nothing pending is a no-op.
//
// Every handler that touches session state must call Apply before writing
// its response body or status; a response finalized with pending mutations
// still staged is a correctness bug.
func (j *Jar) Apply(w http.ResponseWriter) {
	for _, c := range collapse(j.staged[j.written:]) {
		http.SetCookie(w, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			MaxAge:   c.MaxAge,
			Expires:  c.Expires,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
		})
	}
	j.written = len(j.staged)
}

// collapse reduces a mutation sequence so only the last write per name
// survives, ordered by each name's final write position.
func collapse(staged []SetCookie) []SetCookie {
	if len(staged) == 0 {
		return nil
	}

	last := make(map[string]int, len(staged))
	for i, c := range staged {
		last[c.Name] = i
	}

	out := make([]SetCookie, 0, len(last))
	for i, c := range staged {
		if last[c.Name] == i {
			out = append(out, c)
		}
	}
	return out
}
