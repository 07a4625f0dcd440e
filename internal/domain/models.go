package domain

import "time"

// Domain contains core models shared across packages.

// Contact is a single phonebook entry as parsed from a source document.
// Contacts are transient: they only exist between parse and index build.
type Contact struct {
	Name    string
	Numbers []string
}

// Phonebook is a named collection of contacts fetched from one source.
type Phonebook struct {
	Name     string
	Contacts []Contact
}

// CallKind identifies the call monitor event verb.
type CallKind string

const (
	CallRing       CallKind = "RING"
	CallOutgoing   CallKind = "CALL"
	CallConnect    CallKind = "CONNECT"
	CallDisconnect CallKind = "DISCONNECT"
)

// Call is one parsed call monitor line.
type Call struct {
	Kind         CallKind
	At           time.Time
	ConnectionID string
	Extension    string
	Caller       string
	Callee       string
	Device       string
	Duration     time.Duration
}

// RemoteNumber returns the far-end number of the call, if the event carries one.
func (c Call) RemoteNumber() string {
	switch c.Kind {
	case CallRing, CallConnect:
		return c.Caller
	case CallOutgoing:
		return c.Callee
	default:
		return ""
	}
}
