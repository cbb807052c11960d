// Package domain defines the NPC engine's core types: immutable personas,
// engine-owned dynamic state, per-player relationship signals, policy
// observations, and the untrusted NPCOutput proposal shape.
//
// The engine is the sole writer of DynamicState and Relationship values.
// Persona and Observation are read-only inputs; NPCOutput is never trusted
// verbatim and every numeric delta is clamp-applied by the validator.
package domain
