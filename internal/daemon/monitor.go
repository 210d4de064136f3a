// Package daemon implements the background monitoring loop.
package daemon

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
	"github.com/focusfade/focusfade/internal/usecase"
)

// MonitorConfig holds monitoring loop configuration.
type MonitorConfig struct {
	PollInterval   time.Duration // How often to poll the capture service (default 5s)
	NotifyInterval time.Duration // How often to run the distraction check (default 2 min)
	SummarizeEvery int           // Hand the poll batch to the summarizer every Nth poll
	QueryLimit     int           // Max events per capture query
	ContentType    string        // "ui" or "ocr"
}

// DefaultMonitorConfig returns default monitoring configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:   5 * time.Second,
		NotifyInterval: 2 * time.Minute,
		SummarizeEvery: 10,
		QueryLimit:     50,
		ContentType:    "ocr",
	}
}

// Monitor drives the focus session while it is active: polls the
// capture service, feeds focus changes into the tracker, kicks off
// classification and summarization, and runs the periodic distraction
// check. Poll failures are surfaced as a transient error and never
// stop subsequent ticks.
type Monitor struct {
	config     MonitorConfig
	tracker    *usecase.Tracker
	capture    domain.CaptureSource
	classifier *usecase.RelevanceClassifier
	summarizer *usecase.ActivitySummarizer
	notifier   domain.Notifier
	logger     *zap.Logger

	pollCount int
}

// NewMonitor creates a monitor.
func NewMonitor(
	config MonitorConfig,
	tracker *usecase.Tracker,
	capture domain.CaptureSource,
	classifier *usecase.RelevanceClassifier,
	summarizer *usecase.ActivitySummarizer,
	notifier domain.Notifier,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:     config,
		tracker:    tracker,
		capture:    capture,
		classifier: classifier,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger,
	}
}

// Run starts the monitoring loop. This blocks until context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		zap.Duration("poll_interval", m.config.PollInterval),
		zap.Duration("notify_interval", m.config.NotifyInterval))

	pollTicker := time.NewTicker(m.config.PollInterval)
	notifyTicker := time.NewTicker(m.config.NotifyInterval)

	defer func() {
		pollTicker.Stop()
		notifyTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return ctx.Err()

		case <-pollTicker.C:
			m.pollOnce(ctx)

		case <-notifyTicker.C:
			m.checkDistraction(ctx)
		}
	}
}

// pollOnce queries the capture service for events since session start
// and feeds the most recent application to the tracker. Every Nth
// successful poll the full batch goes to the summarizer.
func (m *Monitor) pollOnce(ctx context.Context) {
	sessionID, task, startedAt, active := m.tracker.SessionBounds()
	if !active {
		return
	}

	now := time.Now()
	activities, err := m.capture.Query(ctx, domain.CaptureQuery{
		ContentType: m.config.ContentType,
		StartTime:   startedAt,
		EndTime:     now,
		Limit:       m.config.QueryLimit,
	})
	if err != nil {
		m.logger.Warn("capture poll failed", zap.Error(err))
		m.tracker.SetLastError("capture service unavailable: " + err.Error())
		return
	}
	m.tracker.ClearLastError()

	if len(activities) == 0 {
		return
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})

	latest := latestWithApp(activities)
	if latest == nil {
		return
	}

	changed, err := m.tracker.Observe(latest.AppName, now)
	if err != nil {
		// Session stopped between the bounds read and the observe.
		return
	}
	if changed {
		m.logger.Debug("focus changed", zap.String("app", latest.AppName))
		go m.classify(ctx)
	}

	m.pollCount++
	if m.config.SummarizeEvery > 0 && m.pollCount%m.config.SummarizeEvery == 0 {
		batch := append([]domain.Activity(nil), activities...)
		go m.summarize(ctx, sessionID, task, batch)
	}
}

// classify runs a classification pass for the live session's app set.
// The result is gated on the session ID inside ApplyVerdicts.
func (m *Monitor) classify(ctx context.Context) {
	sessionID, task, apps, ok := m.tracker.ClassificationTarget()
	if !ok {
		return
	}

	verdicts, err := m.classifier.Classify(ctx, task, apps)
	if err != nil {
		m.logger.Warn("classification failed", zap.Error(err))
		m.tracker.SetLastError("relevance analysis failed: " + err.Error())
		return
	}
	m.tracker.ApplyVerdicts(sessionID, verdicts)

	m.logger.Info("relevance verdicts updated",
		zap.String("session_id", sessionID),
		zap.Int("apps", len(apps)))
}

// summarize asks the model for an activity report and stores it on the
// tracker, gated on the session ID. A report rating the distraction
// level HIGH additionally raises an alert with a short preview.
func (m *Monitor) summarize(ctx context.Context, sessionID, task string, activities []domain.Activity) {
	report, err := m.summarizer.Summarize(ctx, activities, task)
	if err != nil {
		m.logger.Warn("summarization failed", zap.Error(err))
		m.tracker.SetLastError("activity analysis failed: " + err.Error())
		return
	}
	m.tracker.SetAnalysis(sessionID, report, time.Now())

	m.logger.Info("activity report updated",
		zap.String("session_id", sessionID),
		zap.Int("activities", len(activities)))

	lower := strings.ToLower(report)
	if strings.Contains(lower, "high") && strings.Contains(lower, "distraction") {
		preview := report
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		if err := m.notifier.Notify(ctx, "Focus Alert", "AI Analysis: "+preview); err != nil {
			m.logger.Warn("notification failed", zap.Error(err))
		}
	}
}

// checkDistraction alerts when the currently tracked app was judged
// not relevant to the focus task. The verdict is the canonical signal;
// apps without a verdict yet don't alert, they only score.
func (m *Monitor) checkDistraction(ctx context.Context) {
	app, verdict, ok := m.tracker.CurrentVerdict()
	if !ok || verdict.IsRelevant {
		return
	}

	_, task, _, _ := m.tracker.SessionBounds()
	message := "You are distracted by " + app + ". Focus on " + task + "!"
	if err := m.notifier.Notify(ctx, "Focus Alert", message); err != nil {
		m.logger.Warn("notification failed", zap.Error(err))
	}
}

func latestWithApp(activities []domain.Activity) *domain.Activity {
	for i := range activities {
		if activities[i].AppName != "" {
			return &activities[i]
		}
	}
	return nil
}
