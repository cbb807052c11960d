package policy

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/quota"
	"github.com/louisbranch/asterfall/internal/platform/timeouts"
)

// Source records which policy produced a resolution.
type Source string

const (
	SourceStub       Source = "stub"
	SourceGenerative Source = "generative"
)

// Fallback reasons carried on resolutions that downgraded to the stub.
const (
	FallbackQuotaExhausted = "quota_exhausted"
	FallbackBackendError   = "backend_error"
	FallbackMalformed      = "malformed_output"
)

// GatewayConfig tunes the gateway independent of the backing policies.
type GatewayConfig struct {
	// MaxInputChars caps the player utterance and world summary before
	// either reaches a policy.
	MaxInputChars int
	// CallTimeout bounds one generative call. Zero means the platform
	// default.
	CallTimeout time.Duration
}

// Gateway is the single entry point for NPC decisions. It routes a
// request to the configured generative backend when quota allows, and
// degrades to the deterministic stub on quota exhaustion, backend
// failure, or malformed output. Every output passes through
// SanitizeOutput before it is returned; a degraded turn is still a
// completed turn, never an error.
type Gateway struct {
	generative Policy
	stub       Policy
	ledger     *quota.Ledger
	cfg        GatewayConfig
}

// Resolution is the gateway's answer for one turn.
type Resolution struct {
	Output domain.NPCOutput
	Source Source
	// FallbackReason is set when Source is SourceStub but a generative
	// backend was configured.
	FallbackReason string
}

// NewGateway builds a gateway. A nil generative policy means every turn
// resolves through the stub without consuming quota.
func NewGateway(generative Policy, ledger *quota.Ledger, cfg GatewayConfig) *Gateway {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeouts.GenerativeCall
	}
	return &Gateway{
		generative: generative,
		stub:       Stub{},
		ledger:     ledger,
		cfg:        cfg,
	}
}

// Resolve decides one turn. The returned error is reserved for invalid
// requests; backend trouble is absorbed into a stub resolution.
func (g *Gateway) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if err := domain.ValidateObservation(req.Observation); err != nil {
		return Resolution{}, err
	}
	req.Observation.PlayerUtterance = domain.TruncateText(req.Observation.PlayerUtterance, g.cfg.MaxInputChars)
	req.Observation.WorldSummary = domain.TruncateText(req.Observation.WorldSummary, g.cfg.MaxInputChars)

	if g.generative == nil {
		return g.resolveStub(ctx, req, "")
	}

	allowed, err := g.ledger.Consume(ctx, req.Observation.PlayerID, quota.DayKey(req.Observation.Now))
	if err != nil {
		log.Printf("policy gateway: quota check failed npc_id=%s err=%v", req.Observation.NPCID, err)
		return g.resolveStub(ctx, req, FallbackBackendError)
	}
	if !allowed {
		return g.resolveStub(ctx, req, FallbackQuotaExhausted)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()
	output, err := g.generative.Decide(callCtx, req)
	if err != nil {
		log.Printf("policy gateway: generative backend failed npc_id=%s err=%v", req.Observation.NPCID, err)
		reason := FallbackBackendError
		if errors.Is(err, ErrMalformedOutput) {
			reason = FallbackMalformed
		}
		return g.resolveStub(ctx, req, reason)
	}

	return Resolution{Output: domain.SanitizeOutput(output), Source: SourceGenerative}, nil
}

func (g *Gateway) resolveStub(ctx context.Context, req Request, reason string) (Resolution, error) {
	output, err := g.stub.Decide(ctx, req)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Output:         domain.SanitizeOutput(output),
		Source:         SourceStub,
		FallbackReason: reason,
	}, nil
}
