package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
)

// ActivitySummarizer batches raw activity events into a prompt and
// asks the model for a free-text focus report. The model's response
// is returned verbatim; no structure is imposed on it.
type ActivitySummarizer struct {
	model  domain.ModelClient
	logger *zap.Logger
}

// NewActivitySummarizer creates a summarizer backed by the given model.
func NewActivitySummarizer(model domain.ModelClient, logger *zap.Logger) *ActivitySummarizer {
	return &ActivitySummarizer{model: model, logger: logger}
}

// Summarize sends the batched activity log to the model and returns
// its report text as-is.
func (s *ActivitySummarizer) Summarize(ctx context.Context, activities []domain.Activity, focusTask string) (string, error) {
	if len(activities) == 0 {
		return "", fmt.Errorf("no activities to summarize")
	}

	prompt := buildSummaryPrompt(activities, focusTask)

	report, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return report, nil
}

func buildSummaryPrompt(activities []domain.Activity, focusTask string) string {
	var log strings.Builder
	for _, a := range activities {
		window := a.WindowName
		if window == "" {
			window = "N/A"
		}
		fmt.Fprintf(&log, "- Time: %s | App: %s | Window: %s\n",
			a.Timestamp.Format("15:04:05"), a.AppName, window)
	}

	return fmt.Sprintf(`# Focus Analysis Task

## User Context
- User's focus task is: %q
- Applications like Cursor, VSCode are IDEs used for coding/programming
- Arc, Chrome, Firefox, Edge are browsers (look at the window tab and decide if the user is focused on said task)
- Slack, Discord, Teams are communication tools (can be both productive or distracting)

## Activity Log to Analyze
%s
## Analysis Instructions
Please analyze the user's activity and provide a clear but BRIEF, structured report covering:

1. **Focus Assessment**:
   - Is the user staying on task with their focus goal of %q?
   - What percentage of time appears to be spent on-task vs. off-task?
   - Identify specific periods of good focus versus distraction.

2. **Distraction Analysis**:
   - Identify the top 2 distracting applications or activities.
   - For each distraction, note its significance and impact on productivity.

3. **Distraction Severity**:
   - Rate the overall distraction level as LOW, MEDIUM, or HIGH.
   - Provide a very brief justification for this rating.

4. **Actionable Recommendations**:
   - Suggest a specific, practical strategy to improve focus.
   - If certain apps are particularly problematic, recommend specific approaches to manage them.

Format your response in clear sections with headings for each of these four areas.
Make sure everything below the headings is in bullet points. Everything must be crisp and to the point.
Make sure to include time durations but dont make the report too long.
Make sure to do time duration calculations properly.`, focusTask, log.String(), focusTask)
}
