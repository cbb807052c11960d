// Package policy produces NPC turn proposals. A policy is pluggable and
// untrusted: the deterministic stub is always available, and a generative
// backend may be configured behind quota, size, and timeout constraints.
// The gateway guarantees callers always receive a structurally valid
// NPCOutput, substituting the stub on any backend failure.
package policy

import (
	"context"
	"errors"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

// Kind selects a policy backend.
type Kind string

const (
	// KindStub selects the deterministic stub policy.
	KindStub Kind = "stub"
	// KindOpenAI selects an OpenAI-compatible chat-completions backend.
	KindOpenAI Kind = "openai"
)

var (
	// ErrBackendUnavailable indicates the generative backend failed,
	// timed out, or returned an unusable response. The gateway absorbs
	// this error; it never reaches turn callers.
	ErrBackendUnavailable = errors.New("generative backend unavailable")
	// ErrMalformedOutput indicates a backend response that could not be
	// parsed into an NPCOutput. Absorbed like ErrBackendUnavailable.
	ErrMalformedOutput = errors.New("malformed policy output")
)

// Request is the read-only context a policy decides from.
type Request struct {
	Persona      domain.Persona
	State        domain.DynamicState
	Relationship domain.Relationship
	Observation  domain.Observation
}

// Policy proposes one turn's NPCOutput from a request.
type Policy interface {
	Decide(ctx context.Context, req Request) (domain.NPCOutput, error)
}
