package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
)

// mockLogStore implements domain.LogStore for testing
type mockLogStore struct {
	records   []domain.FocusLogRecord
	appendErr error
}

func (m *mockLogStore) All() ([]domain.FocusLogRecord, error) {
	return m.records, nil
}

func (m *mockLogStore) Append(rec domain.FocusLogRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockLogStore) Path() string {
	return "mock"
}

// mockArchive implements domain.SessionArchive for testing
type mockArchive struct {
	saved   []domain.ArchivedSession
	saveErr error
}

func (m *mockArchive) SaveSession(s domain.ArchivedSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockArchive) Sessions() ([]domain.ArchivedSession, error) {
	return m.saved, nil
}

func (m *mockArchive) GetSecret(key string) (string, error) { return "", nil }
func (m *mockArchive) SetSecret(key, value string) error    { return nil }
func (m *mockArchive) Close() error                         { return nil }

func newTestTracker(t *testing.T) (*Tracker, *mockLogStore, *mockArchive) {
	t.Helper()
	logStore := &mockLogStore{}
	archive := &mockArchive{}
	return NewTracker(logStore, archive, zap.NewNop()), logStore, archive
}

func TestTrackerStartStop(t *testing.T) {
	tracker, _, archive := newTestTracker(t)
	now := time.Now()

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, tracker.Active())

	// Second start while active fails
	_, err = tracker.Start("writing", now)
	assert.ErrorIs(t, err, ErrSessionActive)

	archived, err := tracker.Stop(now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, id, archived.ID)
	assert.Equal(t, "coding", archived.FocusTask)
	assert.False(t, tracker.Active())

	// Stop while inactive fails
	_, err = tracker.Stop(now.Add(2 * time.Minute))
	assert.ErrorIs(t, err, ErrSessionInactive)

	// Stopped session was archived
	require.Len(t, archive.saved, 1)
	assert.Equal(t, id, archive.saved[0].ID)
}

func TestTrackerObserveAggregatesPerApp(t *testing.T) {
	tracker, logStore, _ := newTestTracker(t)
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)

	changed, err := tracker.Observe("Cursor", now)
	require.NoError(t, err)
	assert.True(t, changed)

	// Same app again is a no-op: no event, no log record
	changed, err = tracker.Observe("Cursor", now.Add(5*time.Second))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, logStore.records)

	// Switch closes the Cursor bucket at 10s
	changed, err = tracker.Observe("Chrome", now.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, changed)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(10000), snap.AppStats["Cursor"])
	assert.Equal(t, "Chrome", snap.CurrentApp)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "Cursor", snap.Events[0].AppName)
	assert.Equal(t, int64(10000), snap.Events[0].DurationMs)

	// Each closed bucket hits the log store exactly once
	require.Len(t, logStore.records, 1)
	assert.Equal(t, "Cursor", logStore.records[0].App)
	assert.Equal(t, 1, snap.LogsCount)
}

func TestTrackerObserveInactive(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, err := tracker.Observe("Cursor", time.Now())
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestTrackerStopFlushesCurrentApp(t *testing.T) {
	tracker, _, archive := newTestTracker(t)
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)

	archived, err := tracker.Stop(now.Add(30 * time.Second))
	require.NoError(t, err)

	assert.Equal(t, int64(30000), archived.AppStats["Cursor"])
	assert.Equal(t, 1, archived.EventCount)
	require.Len(t, archive.saved, 1)
	assert.Equal(t, int64(30000), archive.saved[0].AppStats["Cursor"])
}

func TestTrackerClampsElapsedTime(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)

	// Clock going backwards must not log negative time
	_, err = tracker.Observe("Chrome", now.Add(-5*time.Second))
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(0), snap.AppStats["Cursor"])
	assert.Equal(t, int64(0), snap.DistractionScore)
}

func TestTrackerDistractionScore(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)

	tracker.ApplyVerdicts(id, []domain.RelevanceVerdict{
		{AppName: "Cursor", IsRelevant: true, Reason: "IDE"},
		{AppName: "YouTube", IsRelevant: false, Reason: "entertainment"},
	})

	// Relevant app contributes nothing
	_, err = tracker.Observe("YouTube", now.Add(10*time.Second))
	require.NoError(t, err)
	snap := tracker.Snapshot()
	assert.Equal(t, int64(0), snap.DistractionScore)

	// Not-relevant app contributes its full bucket
	_, err = tracker.Observe("Cursor", now.Add(25*time.Second))
	require.NoError(t, err)
	snap = tracker.Snapshot()
	assert.Equal(t, int64(15000), snap.DistractionScore)

	// Score equals the summed stats of not-relevant apps
	assert.Equal(t, snap.AppStats["YouTube"], snap.DistractionScore)
}

func TestTrackerUnclassifiedAppCountsAsDistraction(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Mystery", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now.Add(8*time.Second))
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(8000), snap.DistractionScore)
}

func TestTrackerVerdictMatchIsCaseInsensitive(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("CURSOR", now)
	require.NoError(t, err)

	tracker.ApplyVerdicts(id, []domain.RelevanceVerdict{
		{AppName: "cursor", IsRelevant: true, Reason: "IDE"},
	})

	_, err = tracker.Observe("Chrome", now.Add(10*time.Second))
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(0), snap.DistractionScore)
}

func TestTrackerStaleVerdictsDropped(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	oldID, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Stop(now.Add(time.Second))
	require.NoError(t, err)

	newID, err := tracker.Start("coding", now.Add(2*time.Second))
	require.NoError(t, err)
	require.NotEqual(t, oldID, newID)

	// Verdicts computed for the old session must not leak into the new one
	tracker.ApplyVerdicts(oldID, []domain.RelevanceVerdict{
		{AppName: "Cursor", IsRelevant: true},
	})
	snap := tracker.Snapshot()
	assert.Empty(t, snap.Verdicts)

	tracker.SetAnalysis(oldID, "stale report", now.Add(3*time.Second))
	snap = tracker.Snapshot()
	assert.Empty(t, snap.Analysis)
}

func TestTrackerStartResetsState(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)
	tracker.ApplyVerdicts(id, []domain.RelevanceVerdict{
		{AppName: "Cursor", IsRelevant: true},
	})
	tracker.SetAnalysis(id, "report", now)
	_, err = tracker.Stop(now.Add(10*time.Second))
	require.NoError(t, err)

	_, err = tracker.Start("writing", now.Add(time.Minute))
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, "writing", snap.FocusTask)
	assert.Empty(t, snap.AppStats)
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.Verdicts)
	assert.Empty(t, snap.Analysis)
	assert.Equal(t, int64(0), snap.DistractionScore)
	assert.Equal(t, 0, snap.LogsCount)
}

func TestTrackerClassificationTarget(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	// Nothing to classify without a session
	_, _, _, ok := tracker.ClassificationTarget()
	assert.False(t, ok)

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)

	// Still nothing until an app was observed
	_, _, _, ok = tracker.ClassificationTarget()
	assert.False(t, ok)

	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Chrome", now.Add(5*time.Second))
	require.NoError(t, err)

	gotID, task, apps, ok := tracker.ClassificationTarget()
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "coding", task)
	assert.Equal(t, []string{"Cursor", "Chrome"}, apps)
}

func TestTrackerLogStoreFailureDoesNotCountLogs(t *testing.T) {
	logStore := &mockLogStore{appendErr: errors.New("disk full")}
	tracker := NewTracker(logStore, nil, zap.NewNop())
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Cursor", now)
	require.NoError(t, err)
	_, err = tracker.Observe("Chrome", now.Add(5*time.Second))
	require.NoError(t, err)

	snap := tracker.Snapshot()
	assert.Equal(t, 0, snap.LogsCount)
	// Stats still accumulate even when the log write fails
	assert.Equal(t, int64(5000), snap.AppStats["Cursor"])
}

func TestTrackerArchiveFailureStillStops(t *testing.T) {
	logStore := &mockLogStore{}
	archive := &mockArchive{saveErr: errors.New("db locked")}
	tracker := NewTracker(logStore, archive, zap.NewNop())
	now := time.Now()

	_, err := tracker.Start("coding", now)
	require.NoError(t, err)

	archived, err := tracker.Stop(now.Add(time.Second))
	require.NoError(t, err)
	assert.NotNil(t, archived)
	assert.False(t, tracker.Active())
}

func TestTrackerCurrentVerdict(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	now := time.Now()

	_, _, ok := tracker.CurrentVerdict()
	assert.False(t, ok)

	id, err := tracker.Start("coding", now)
	require.NoError(t, err)
	_, err = tracker.Observe("YouTube", now)
	require.NoError(t, err)

	// No verdict yet for the tracked app
	_, _, ok = tracker.CurrentVerdict()
	assert.False(t, ok)

	tracker.ApplyVerdicts(id, []domain.RelevanceVerdict{
		{AppName: "YouTube", IsRelevant: false, Reason: "entertainment"},
	})

	app, verdict, ok := tracker.CurrentVerdict()
	require.True(t, ok)
	assert.Equal(t, "YouTube", app)
	assert.False(t, verdict.IsRelevant)
}

func TestTrackerLastError(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	tracker.SetLastError("capture service unavailable: connection refused")
	assert.Equal(t, "capture service unavailable: connection refused", tracker.Snapshot().LastError)

	tracker.ClearLastError()
	assert.Empty(t, tracker.Snapshot().LastError)
}
