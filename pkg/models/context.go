package models

import "time"

// Preference is a learned user preference, keyed by (category, key).
type Preference struct {
	// Category groups related preferences (e.g. "document").
	Category string `json:"category"`
	// Key identifies the preference within its category.
	Key string `json:"key"`
	// Value is the preferred setting.
	Value string `json:"value"`
	// Confidence is in [0,1]. Reinforcement never lowers it; explicit
	// updates overwrite it.
	Confidence float64 `json:"confidence"`
	// LastUpdated is when the preference last changed.
	LastUpdated time.Time `json:"last_updated"`
}

// TaskHistoryEntry is the durable record of a completed task.
type TaskHistoryEntry struct {
	// TaskID is the unique task identifier.
	TaskID string `json:"task_id"`
	// Command is the original utterance.
	Command string `json:"command"`
	// Category is the task category.
	Category Category `json:"category"`
	// ExecutionTimeSeconds is the wall-clock run time.
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	// Success records whether the task succeeded.
	Success bool `json:"success"`
	// Timestamp is when the task finished.
	Timestamp time.Time `json:"timestamp"`
	// ContextBlob carries serialized ambient context, opaque to the store.
	ContextBlob string `json:"context_blob,omitempty"`
	// Similarity is populated on results of similarity queries.
	Similarity float64 `json:"similarity,omitempty"`
}

// Pattern is an extracted behavioral pattern, keyed by (type, data).
type Pattern struct {
	// PatternType names the kind of pattern (e.g. "command_bigram").
	PatternType string `json:"pattern_type"`
	// PatternData is the pattern payload.
	PatternData string `json:"pattern_data"`
	// Frequency counts reinforcements; it only increases outside cleanup.
	Frequency int `json:"frequency"`
	// LastSeen is when the pattern was last reinforced.
	LastSeen time.Time `json:"last_seen"`
	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`
}

// Utterance is one conversation turn recorded for a session.
type Utterance struct {
	// SessionID is the owning session.
	SessionID string `json:"session_id"`
	// Text is the raw utterance.
	Text string `json:"text"`
	// Success records whether the resulting task succeeded.
	Success bool `json:"success"`
	// Timestamp is when the utterance was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Session tracks one assistant process lifetime.
type Session struct {
	// SessionID is the unique session identifier.
	SessionID string `json:"session_id"`
	// StartedAt is when the session opened.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is when the session closed, if it has.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// CompletedTaskIDs lists tasks that finished during the session.
	CompletedTaskIDs []string `json:"completed_task_ids,omitempty"`
	// CurrentFocus is the application or topic currently in focus.
	CurrentFocus string `json:"current_focus,omitempty"`
	// InteractionMode is how the user is driving the session (text, voice).
	InteractionMode string `json:"interaction_mode"`
}
