// Package usecase contains application business logic.
package usecase

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
)

var (
	// ErrSessionActive is returned by Start when a session is already running.
	ErrSessionActive = errors.New("session already active")

	// ErrSessionInactive is returned by operations that require a running session.
	ErrSessionInactive = errors.New("no active session")
)

// Tracker is the focus session state machine. It owns the single live
// session: the currently focused application, per-app elapsed time,
// the ordered event log and the distraction score.
//
// State transitions: Inactive -> Active (Start) -> Inactive (Stop).
// Start clears all aggregates; Stop freezes them for inspection.
// All mutation goes through the methods below; the mutex exists
// because HTTP handlers read snapshots concurrently with the poller.
type Tracker struct {
	mu       sync.Mutex
	logStore domain.LogStore
	archive  domain.SessionArchive // may be nil
	logger   *zap.Logger

	sessionID string
	focusTask string
	active    bool
	startedAt time.Time
	endedAt   time.Time

	currentApp     string
	lastTransition time.Time
	lastStatsFlush time.Time

	events        []domain.FocusEvent
	stats         map[string]int64
	verdicts      map[string]domain.RelevanceVerdict // keyed by lowercased app name
	distractionMs int64
	logsCount     int

	analysis   string
	analysisAt time.Time
	lastError  string
}

// NewTracker creates a tracker. archive may be nil when session
// archiving is disabled.
func NewTracker(logStore domain.LogStore, archive domain.SessionArchive, logger *zap.Logger) *Tracker {
	return &Tracker{
		logStore: logStore,
		archive:  archive,
		logger:   logger,
		stats:    make(map[string]int64),
		verdicts: make(map[string]domain.RelevanceVerdict),
	}
}

// Start begins a new session, resetting stats, score, event log and
// logs count regardless of prior state. Returns the new session ID.
func (t *Tracker) Start(task string, now time.Time) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return "", ErrSessionActive
	}

	t.sessionID = uuid.NewString()
	t.focusTask = task
	t.active = true
	t.startedAt = now
	t.endedAt = time.Time{}
	t.currentApp = ""
	t.lastTransition = now
	t.lastStatsFlush = now
	t.events = nil
	t.stats = make(map[string]int64)
	t.verdicts = make(map[string]domain.RelevanceVerdict)
	t.distractionMs = 0
	t.logsCount = 0
	t.analysis = ""
	t.analysisAt = time.Time{}
	t.lastError = ""

	t.logger.Info("session started",
		zap.String("session_id", t.sessionID),
		zap.String("focus_task", task))

	return t.sessionID, nil
}

// Stop freezes the session. The in-progress bucket for the currently
// tracked app is flushed first so the totals cover the whole session.
func (t *Tracker) Stop(now time.Time) (*domain.ArchivedSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil, ErrSessionInactive
	}

	if t.currentApp != "" {
		t.flushLocked(t.currentApp, now)
	}

	t.active = false
	t.endedAt = now

	archived := &domain.ArchivedSession{
		ID:               t.sessionID,
		FocusTask:        t.focusTask,
		StartedAt:        t.startedAt,
		EndedAt:          now,
		AppStats:         copyStats(t.stats),
		DistractionScore: t.distractionMs,
		EventCount:       len(t.events),
	}

	if t.archive != nil {
		if err := t.archive.SaveSession(*archived); err != nil {
			t.logger.Warn("failed to archive session", zap.Error(err))
		}
	}

	t.logger.Info("session stopped",
		zap.String("session_id", t.sessionID),
		zap.Int64("distraction_ms", t.distractionMs),
		zap.Int("events", len(t.events)))

	return archived, nil
}

// Observe feeds the latest focused application into the state machine.
// Repeated observations of the same app are a no-op, so repeated polls
// produce no duplicate events. Returns true when focus changed.
func (t *Tracker) Observe(appName string, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return false, ErrSessionInactive
	}
	if appName == t.currentApp {
		return false, nil
	}

	if t.currentApp != "" {
		t.flushLocked(t.currentApp, now)
	}

	t.currentApp = appName
	t.lastTransition = now

	return true, nil
}

// flushLocked closes the current app's bucket at instant now: records
// a FocusEvent, adds the elapsed time to AppStats and, when the app's
// latest verdict is absent or not relevant, to the distraction score.
// The elapsed time is clamped to [0, now-lastStatsFlush] so clock skew
// or missed polls can never log more than real wall-clock time.
func (t *Tracker) flushLocked(app string, now time.Time) {
	elapsed := now.Sub(t.lastTransition).Milliseconds()
	ceiling := now.Sub(t.lastStatsFlush).Milliseconds()
	if elapsed > ceiling {
		elapsed = ceiling
	}
	if elapsed < 0 {
		elapsed = 0
	}

	t.events = append(t.events, domain.FocusEvent{
		Timestamp:  now,
		AppName:    app,
		DurationMs: elapsed,
	})
	t.stats[app] += elapsed

	verdict, ok := t.verdicts[strings.ToLower(app)]
	if !ok || !verdict.IsRelevant {
		t.distractionMs += elapsed
	}

	t.lastStatsFlush = now

	if t.logStore != nil {
		rec := domain.FocusLogRecord{
			Timestamp:  now.UnixMilli(),
			App:        app,
			DurationMs: elapsed,
		}
		if err := t.logStore.Append(rec); err != nil {
			t.logger.Warn("failed to append focus log", zap.Error(err))
		} else {
			t.logsCount++
		}
	}
}

// ClassificationTarget returns what the classifier should analyze:
// the live session ID, the focus task and the observed app set.
// ok is false when there is nothing to classify (inactive session,
// empty task, or no apps observed yet).
func (t *Tracker) ClassificationTarget() (sessionID, task string, apps []string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active || t.focusTask == "" {
		return "", "", nil, false
	}

	apps = make([]string, 0, len(t.stats)+1)
	seen := make(map[string]bool, len(t.stats)+1)
	for _, e := range t.events {
		if !seen[e.AppName] {
			seen[e.AppName] = true
			apps = append(apps, e.AppName)
		}
	}
	if t.currentApp != "" && !seen[t.currentApp] {
		apps = append(apps, t.currentApp)
	}

	if len(apps) == 0 {
		return "", "", nil, false
	}
	return t.sessionID, t.focusTask, apps, true
}

// ApplyVerdicts replaces the verdict set wholesale. Results computed
// for a session that is no longer live are dropped, so an in-flight
// classification finishing after Stop/Start cannot corrupt the fresh
// session's state.
func (t *Tracker) ApplyVerdicts(sessionID string, verdicts []domain.RelevanceVerdict) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sessionID != t.sessionID || !t.active {
		t.logger.Debug("dropping stale verdicts", zap.String("session_id", sessionID))
		return
	}

	t.verdicts = make(map[string]domain.RelevanceVerdict, len(verdicts))
	for _, v := range verdicts {
		t.verdicts[strings.ToLower(v.AppName)] = v
	}
}

// SetAnalysis stores the latest AI activity report, gated on session ID.
func (t *Tracker) SetAnalysis(sessionID, text string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sessionID != t.sessionID || !t.active {
		t.logger.Debug("dropping stale analysis", zap.String("session_id", sessionID))
		return
	}
	t.analysis = text
	t.analysisAt = at
}

// SetLastError records a transient error for the dashboard banner.
func (t *Tracker) SetLastError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = msg
}

// ClearLastError removes the transient error banner.
func (t *Tracker) ClearLastError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = ""
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// CurrentVerdict returns the latest verdict for the currently tracked
// app. ok is false when no app is tracked or no verdict exists yet.
func (t *Tracker) CurrentVerdict() (app string, verdict domain.RelevanceVerdict, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active || t.currentApp == "" {
		return "", domain.RelevanceVerdict{}, false
	}
	verdict, ok = t.verdicts[strings.ToLower(t.currentApp)]
	return t.currentApp, verdict, ok
}

// SessionBounds returns the live session's ID, task and start time.
func (t *Tracker) SessionBounds() (sessionID, task string, startedAt time.Time, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID, t.focusTask, t.startedAt, t.active
}

// Snapshot returns a deep copy of the session state for presentation.
func (t *Tracker) Snapshot() domain.SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := domain.SessionSnapshot{
		SessionID:        t.sessionID,
		Active:           t.active,
		FocusTask:        t.focusTask,
		CurrentApp:       t.currentApp,
		AppStats:         copyStats(t.stats),
		DistractionScore: t.distractionMs,
		LogsCount:        t.logsCount,
		Events:           append([]domain.FocusEvent(nil), t.events...),
		Verdicts:         make(map[string]domain.RelevanceVerdict, len(t.verdicts)),
		Analysis:         t.analysis,
		LastError:        t.lastError,
	}
	for _, v := range t.verdicts {
		snap.Verdicts[v.AppName] = v
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		snap.StartedAt = &started
	}
	if !t.endedAt.IsZero() {
		ended := t.endedAt
		snap.EndedAt = &ended
	}
	if !t.analysisAt.IsZero() {
		at := t.analysisAt
		snap.AnalysisAt = &at
	}
	return snap
}

func copyStats(stats map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}
