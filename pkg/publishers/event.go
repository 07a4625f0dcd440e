package publishers

import (
	"time"

	"github.com/hausnetz/fonwatch/internal/domain"
)

// Event is the call notification payload published downstream.
type Event struct {
	Kind       string    `json:"kind"`
	Caller     string    `json:"caller,omitempty"`
	Callee     string    `json:"callee,omitempty"`
	CallerName string    `json:"caller_name,omitempty"`
	SourceID   string    `json:"source_id,omitempty"`
	Phonebook  string    `json:"phonebook,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewEvent constructs an Event from a parsed call monitor line. Resolution
// fields (CallerName, SourceID, Phonebook) are filled in by the caller once
// the number has been matched against a phonebook.
func NewEvent(call domain.Call) Event {
	return Event{
		Kind:       string(call.Kind),
		Caller:     call.Caller,
		Callee:     call.Callee,
		ReceivedAt: time.Now().UTC(),
	}
}
