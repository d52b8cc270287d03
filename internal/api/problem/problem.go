// Package problem renders RFC 7807 responses for the ledger API.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "application/problem+json"
	baseTypeURL = "https://errors.custody-ledger.dev/"
	traceHeader = "X-Trace-ID"
)

// Details is the RFC 7807 body with the ledger's extension members.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id"`

	// Kind is the stable ledger error kind, e.g. "cap_exceeded".
	Kind string `json:"kind,omitempty"`
	// Attempted and Cap are set for cap_exceeded, in usd6.
	Attempted string `json:"attempted_usd6,omitempty"`
	Cap       string `json:"cap_usd6,omitempty"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// New starts a problem with the given status, type slug and detail.
func New(status int, slug, detail string) *Details {
	d := &Details{Status: status, Title: http.StatusText(status), Detail: detail, Type: "about:blank"}
	if slug != "" {
		d.Type = Type(slug)
	}
	return d
}

// WithKind tags the problem with a ledger error kind.
func (d *Details) WithKind(kind string) *Details {
	d.Kind = kind
	return d
}

// WithCap attaches the rejected total and the cap.
func (d *Details) WithCap(attempted, limit string) *Details {
	d.Attempted = attempted
	d.Cap = limit
	return d
}

// Send writes the problem, filling instance and request id from r.
func (d *Details) Send(w http.ResponseWriter, r *http.Request) {
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}
	if r != nil {
		d.Instance = r.URL.Path
		d.RequestID = r.Header.Get(traceHeader)
	}
	if d.RequestID == "" {
		d.RequestID = w.Header().Get(traceHeader)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}

// Write sends a problem without extension members.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	if problemType == "" {
		problemType = "about:blank"
	}
	d := &Details{Type: problemType, Title: title, Status: status, Detail: detail}
	d.Send(w, r)
}
