package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Outbound call timeouts
const (
	AssistantRequestTimeout = 30 * time.Second
	SlackPostTimeout        = 10 * time.Second
)

// Headroom added on top of the run-wait budget for the detached
// per-event processing context (message append + reply post).
const DispatchTimeoutSlack = 30 * time.Second

// Slack retries event delivery for a few minutes; seen event IDs are
// remembered at least that long.
const (
	EventDedupeTTL     = 10 * time.Minute
	EventDedupeMaxSize = 10000
)
