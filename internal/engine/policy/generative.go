package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

// GenerativeConfig configures the chat-completions endpoint and HTTP behavior.
type GenerativeConfig struct {
	CompletionsURL string
	Model          string
	APIKey         string
	HTTPClient     *http.Client
}

// Generative calls an OpenAI-compatible chat-completions endpoint and
// decodes the reply into an NPCOutput. Any transport or status failure is
// reported as ErrBackendUnavailable; undecodable replies as
// ErrMalformedOutput. Callers are expected to fall back to Stub on either.
type Generative struct {
	cfg GenerativeConfig
}

// NewGenerative builds a chat-completions backed policy.
func NewGenerative(cfg GenerativeConfig) *Generative {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.CompletionsURL) == "" {
		cfg.CompletionsURL = "https://api.openai.com/v1/chat/completions"
	}
	return &Generative{cfg: cfg}
}

// Decide implements Policy.
func (g *Generative) Decide(ctx context.Context, req Request) (domain.NPCOutput, error) {
	model := strings.TrimSpace(g.cfg.Model)
	apiKey := strings.TrimSpace(g.cfg.APIKey)
	if model == "" {
		return domain.NPCOutput{}, fmt.Errorf("%w: model is required", ErrBackendUnavailable)
	}
	if apiKey == "" {
		return domain.NPCOutput{}, fmt.Errorf("%w: api key is required", ErrBackendUnavailable)
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req)},
			{"role": "user", "content": userPrompt(req)},
		},
		"temperature": 0.8,
	})
	if err != nil {
		return domain.NPCOutput{}, fmt.Errorf("marshal completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.CompletionsURL, bytes.NewReader(requestBody))
	if err != nil {
		return domain.NPCOutput{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or logs.
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := g.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return domain.NPCOutput{}, fmt.Errorf("%w: completion request failed: %v", ErrBackendUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return domain.NPCOutput{}, fmt.Errorf("%w: completion status %d", ErrBackendUnavailable, res.StatusCode)
		}
		return domain.NPCOutput{}, fmt.Errorf("%w: completion status %d: %s", ErrBackendUnavailable, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return domain.NPCOutput{}, fmt.Errorf("%w: decode completion response: %v", ErrMalformedOutput, err)
	}
	if len(payload.Choices) == 0 {
		return domain.NPCOutput{}, fmt.Errorf("%w: completion response has no choices", ErrMalformedOutput)
	}

	output, err := decodeOutput(payload.Choices[0].Message.Content)
	if err != nil {
		return domain.NPCOutput{}, err
	}
	return output, nil
}

func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are roleplaying a non-player character in a persistent fantasy town. ")
	b.WriteString("Stay in character and reply ONLY with a JSON object with these keys: ")
	b.WriteString(`"dialogue" (string), "intent" (string), "candidate_actions" (array of {"kind","target","content","intensity","tags","metadata"}), `)
	b.WriteString(`"state_updates" ({"mood_delta","affinity_delta","trust_delta","respect_delta","bond_flags_add","grudge_flags_add","greeting_stage_advance","current_goal"}), `)
	b.WriteString(`"memory_update" ({"summary","pin"}).` + "\n\n")

	persona := req.Persona
	fmt.Fprintf(&b, "Character: %s (%s). Background: %s. Ideals: %s. Bonds: %s. Flaws: %s. Motivation: %s. Fear: %s. Voice: %s.\n",
		persona.Name, persona.Alignment,
		strings.Join(persona.Background, " "), strings.Join(persona.Ideals, " "),
		strings.Join(persona.Bonds, " "), strings.Join(persona.Flaws, " "),
		persona.Motivation, persona.Fear, persona.VoiceStyle)
	fmt.Fprintf(&b, "Current mood %d, goal: %s. Memory: %s\n", req.State.Mood, req.State.CurrentGoal, req.State.MemorySummary)
	if len(req.State.PinnedMemories) > 0 {
		fmt.Fprintf(&b, "Pinned memories: %s\n", strings.Join(req.State.PinnedMemories, "; "))
	}
	rel := req.Relationship
	fmt.Fprintf(&b, "Relationship with this player: affinity %d, trust %d, respect %d, greeting stage %d.",
		rel.Affinity, rel.Trust, rel.Respect, rel.GreetingStage)
	if len(rel.BondFlags) > 0 {
		fmt.Fprintf(&b, " Bonds: %s.", strings.Join(rel.BondFlags, ", "))
	}
	if len(rel.GrudgeFlags) > 0 {
		fmt.Fprintf(&b, " Grudges: %s.", strings.Join(rel.GrudgeFlags, ", "))
	}
	return b.String()
}

func userPrompt(req Request) string {
	obs := req.Observation
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s.", locationLabel(obs))
	if obs.WorldSummary != "" {
		fmt.Fprintf(&b, " World: %s.", obs.WorldSummary)
	}
	if len(obs.RecentDialogue) > 0 {
		fmt.Fprintf(&b, "\nRecent dialogue:\n%s", strings.Join(obs.RecentDialogue, "\n"))
	}
	if obs.Autonomous() {
		b.WriteString("\nNo player is present. Decide what the character does on their own. Dialogue may be empty.")
	} else {
		fmt.Fprintf(&b, "\nPlayer %s says: %q", obs.PlayerID, obs.PlayerUtterance)
	}
	return b.String()
}
