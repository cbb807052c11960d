// Package timeouts defines shared timeout constants used across engine
// processes. Centralizing these values prevents drift between components
// and makes the durations discoverable.
package timeouts

import "time"

// GenerativeCall caps a single generative-backend request. When the call
// exceeds this bound the policy gateway proceeds with the stub fallback;
// there is no retry.
const GenerativeCall = 20 * time.Second

// Shutdown limits how long a command waits on telemetry flush during
// graceful shutdown.
const Shutdown = 5 * time.Second
