// Package lookup models the lifecycle of a birthday verse lookup.
//
// A lookup moves from Idle to Loading and ends in Success or Failed.
// Every state carries the request id that produced it so that a newer
// request always wins over a slower, older one.
package lookup

import (
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

// Kind identifies the variant of a State.
type Kind int

const (
	// KindIdle means no lookup has been requested, or the input is incomplete.
	KindIdle Kind = iota
	// KindLoading means a lookup is in flight.
	KindLoading
	// KindSuccess means a verse (possibly the fallback) was produced.
	KindSuccess
	// KindFailed means the lookup failed with a user-visible message.
	KindFailed
)

var kindNames = map[Kind]string{
	KindIdle:    "idle",
	KindLoading: "loading",
	KindSuccess: "success",
	KindFailed:  "failed",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON encodes the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown lookup state %q", name)
}

// State is an immutable snapshot of a lookup.
// Result is set only for KindSuccess and Message only for KindFailed.
type State struct {
	Kind      Kind          `json:"state"`
	RequestID uint64        `json:"request_id"`
	Result    *verse.Result `json:"result,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Idle returns the idle state.
func Idle() State {
	return State{Kind: KindIdle}
}

// Loading returns the in-flight state for request id.
func Loading(id uint64) State {
	return State{Kind: KindLoading, RequestID: id}
}

// Success returns the terminal success state for request id.
func Success(id uint64, r verse.Result) State {
	return State{Kind: KindSuccess, RequestID: id, Result: &r}
}

// Failed returns the terminal failure state for request id.
func Failed(id uint64, message string) State {
	return State{Kind: KindFailed, RequestID: id, Message: message}
}

// Terminal reports whether the state ends a lookup.
func (s State) Terminal() bool {
	return s.Kind == KindSuccess || s.Kind == KindFailed
}

// WithRequestID returns a copy of s attributed to request id.
func (s State) WithRequestID(id uint64) State {
	s.RequestID = id
	return s
}
