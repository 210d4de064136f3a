// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Activity is a single capture-service event: what was on screen at an instant.
// AppName, WindowName and Text may be empty depending on the content type.
type Activity struct {
	Timestamp  time.Time `json:"timestamp"`
	AppName    string    `json:"appName,omitempty"`
	WindowName string    `json:"windowName,omitempty"`
	Text       string    `json:"text,omitempty"`
}

// FocusEvent records one completed stay in an application.
// Appended when focus moves away from AppName; never mutated afterwards.
// Insertion order is chronological order.
type FocusEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	AppName    string    `json:"appName"`
	DurationMs int64     `json:"durationMs"`
}

// RelevanceVerdict is the classifier's judgment for one application.
// Fallback marks verdicts produced by the heuristic text-match path
// rather than the strict JSON path, so callers can tell them apart.
type RelevanceVerdict struct {
	AppName    string `json:"appName"`
	IsRelevant bool   `json:"isRelevant"`
	Reason     string `json:"reason"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// ReasonNotAnalyzed is the sentinel reason for apps the model skipped.
const ReasonNotAnalyzed = "Not analyzed by AI"

// FocusLogRecord is one entry in the flat append-only focus log file.
// Timestamp is unix milliseconds, matching the log file's wire format.
type FocusLogRecord struct {
	Timestamp  int64  `json:"timestamp"`
	App        string `json:"app"`
	DurationMs int64  `json:"duration,omitempty"`
}

// SessionSnapshot is a read-only copy of the live session state,
// handed to the presentation layer. Mutation happens only through
// the tracker's state-machine operations.
type SessionSnapshot struct {
	SessionID        string                      `json:"sessionId,omitempty"`
	Active           bool                        `json:"active"`
	FocusTask        string                      `json:"focusTask"`
	StartedAt        *time.Time                  `json:"startedAt,omitempty"`
	EndedAt          *time.Time                  `json:"endedAt,omitempty"`
	CurrentApp       string                      `json:"currentApp,omitempty"`
	AppStats         map[string]int64            `json:"appStats"`
	DistractionScore int64                       `json:"distractionScore"`
	LogsCount        int                         `json:"logsCount"`
	Events           []FocusEvent                `json:"events"`
	Verdicts         map[string]RelevanceVerdict `json:"verdicts"`
	Analysis         string                      `json:"analysis,omitempty"`
	AnalysisAt       *time.Time                  `json:"analysisAt,omitempty"`
	LastError        string                      `json:"lastError,omitempty"`
}

// ArchivedSession is a frozen, persisted session summary.
type ArchivedSession struct {
	ID               string           `json:"id"`
	FocusTask        string           `json:"focusTask"`
	StartedAt        time.Time        `json:"startedAt"`
	EndedAt          time.Time        `json:"endedAt"`
	AppStats         map[string]int64 `json:"appStats"`
	DistractionScore int64            `json:"distractionScore"`
	EventCount       int              `json:"eventCount"`
}

// HostSnapshot is a small health readout for the status surface.
type HostSnapshot struct {
	CaptureRunning bool    `json:"captureRunning"`
	CPUCount       int     `json:"cpuCount"`
	MemUsedPercent float64 `json:"memUsedPercent"`
}
