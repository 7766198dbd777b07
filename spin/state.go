package spin

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/guild-wheel/authority"
)

// State is the controller's lifecycle position
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateAnimating
	StateResolved // transient: event emitted, then Idle
	StateAborted  // transient: event emitted, then Idle
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateAnimating:
		return "animating"
	case StateResolved:
		return "resolved"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions is the full transition table; anything else is a bug
var validTransitions = map[State][]State{
	StateIdle:       {StateRequesting, StateAborted},
	StateRequesting: {StateAnimating, StateAborted, StateIdle},
	StateAnimating:  {StateResolved, StateIdle},
	StateResolved:   {StateIdle},
	StateAborted:    {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrorKind classifies why a spin did not resolve
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNoEligibleCandidates
	KindAuthorityUnreachable
	KindAuthorityRejected
	KindSessionSuperseded
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoEligibleCandidates:
		return "no_eligible_candidates"
	case KindAuthorityUnreachable:
		return "authority_unreachable"
	case KindAuthorityRejected:
		return "authority_rejected"
	case KindSessionSuperseded:
		return "session_superseded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is the single human-readable notification for a user-visible kind
func (k ErrorKind) Message() string {
	switch k {
	case KindNoEligibleCandidates:
		return "No eligible members for this reward"
	case KindAuthorityUnreachable:
		return "Could not reach the guild server, try again"
	case KindAuthorityRejected:
		return "The guild server rejected the spin"
	default:
		return ""
	}
}

// ErrSessionSuperseded marks a response that arrived for a discarded session
var ErrSessionSuperseded = errors.New("spin session superseded")

// Classify maps an authority error to its kind
// Errors that carry no known sentinel are treated as transport failures
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSessionSuperseded):
		return KindSessionSuperseded
	case errors.Is(err, authority.ErrNoEligibleCandidates):
		return KindNoEligibleCandidates
	case errors.Is(err, authority.ErrRejected):
		return KindAuthorityRejected
	default:
		// authority.ErrUnreachable, context errors and unknown failures
		return KindAuthorityUnreachable
	}
}
