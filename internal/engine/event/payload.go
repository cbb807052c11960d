package event

// SpokePayload captures the payload for NPC_SPOKE events.
type SpokePayload struct {
	Dialogue   string `json:"dialogue"`
	Intent     string `json:"intent"`
	LocationID string `json:"location_id"`
	// Source records which policy produced the dialogue.
	Source string `json:"source,omitempty"`
}

// StateUpdatedPayload captures the payload for NPC_STATE_UPDATED events.
// It records what was actually applied after validation, not what the
// policy proposed.
type StateUpdatedPayload struct {
	Mood              int      `json:"mood"`
	MoodDecay         int      `json:"mood_decay"`
	MoodDelta         int      `json:"mood_delta,omitempty"`
	AffinityDelta     int      `json:"affinity_delta,omitempty"`
	TrustDelta        int      `json:"trust_delta,omitempty"`
	RespectDelta      int      `json:"respect_delta,omitempty"`
	BondFlagsAdded    []string `json:"bond_flags_added,omitempty"`
	GrudgeFlagsAdded  []string `json:"grudge_flags_added,omitempty"`
	GreetingStage     int      `json:"greeting_stage,omitempty"`
	SummaryReplaced   bool     `json:"summary_replaced,omitempty"`
	PinnedMemoryAdded bool     `json:"pinned_memory_added,omitempty"`
	DroppedFields     []string `json:"dropped_fields,omitempty"`
}

// TickPayload captures the payload for NPC_TICK events.
type TickPayload struct {
	LocationID string `json:"location_id"`
	Intent     string `json:"intent"`
	Executed   int    `json:"executed"`
	Flavor     int    `json:"flavor"`
	// Fallback marks ticks whose policy output came from the stub after a
	// backend failure.
	Fallback bool `json:"fallback,omitempty"`
	// Failed marks ticks whose pipeline or commit failed; no state change
	// was persisted for the tick.
	Failed bool `json:"failed,omitempty"`
	// Error carries the failure message for failed ticks.
	Error string `json:"error,omitempty"`
}

// FlavorOnlyPayload captures the payload for FLAVOR_ONLY events.
type FlavorOnlyPayload struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Target string `json:"target,omitempty"`
	// Autonomous marks downgrades originating from planner ticks.
	Autonomous bool `json:"autonomous,omitempty"`
}

// MovedPayload captures the payload for NPC_MOVED events.
type MovedPayload struct {
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	Reason         string `json:"reason,omitempty"`
	Autonomous     bool   `json:"autonomous,omitempty"`
}

// AvailabilityChangedPayload captures the payload for
// NPC_AVAILABILITY_CHANGED events.
type AvailabilityChangedPayload struct {
	Availability    string `json:"availability"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Autonomous      bool   `json:"autonomous,omitempty"`
}

// WorldSeededPayload captures the payload for WORLD_SEEDED events.
type WorldSeededPayload struct {
	Locations int `json:"locations"`
	NPCs      int `json:"npcs"`
}
