package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
)

// RelevanceClassifier asks the language model which of the observed
// applications are relevant to the focus task.
type RelevanceClassifier struct {
	model  domain.ModelClient
	logger *zap.Logger
}

// NewRelevanceClassifier creates a classifier backed by the given model.
func NewRelevanceClassifier(model domain.ModelClient, logger *zap.Logger) *RelevanceClassifier {
	return &RelevanceClassifier{model: model, logger: logger}
}

// rawVerdict is the JSON shape the model is asked to emit.
type rawVerdict struct {
	App        string `json:"app"`
	IsRelevant bool   `json:"isRelevant"`
	Reason     string `json:"reason"`
}

// Classify returns exactly one verdict per input app, matched
// case-insensitively against the model's answer. Apps the model
// skipped default to not-relevant with a sentinel reason.
//
// The strict path parses the first well-formed JSON array found
// anywhere in the response (models wrap arrays in commentary or code
// fences). If no array parses, the heuristic fallback marks an app
// relevant when the raw text contains "<app> relevant", and every
// verdict carries the Fallback flag. Transport errors propagate;
// verdicts are never fabricated on a failed model call.
func (c *RelevanceClassifier) Classify(ctx context.Context, task string, apps []string) ([]domain.RelevanceVerdict, error) {
	if len(apps) == 0 {
		return nil, nil
	}

	prompt := buildClassifyPrompt(task, apps)

	response, err := c.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	parsed, ok := parseVerdictArray(response)
	if !ok {
		c.logger.Warn("no parseable verdict array in model response, using heuristic fallback",
			zap.Int("response_len", len(response)))
		return fallbackVerdicts(response, apps), nil
	}

	verdicts := make([]domain.RelevanceVerdict, 0, len(apps))
	for _, app := range apps {
		match, found := findVerdict(parsed, app)
		if !found {
			verdicts = append(verdicts, domain.RelevanceVerdict{
				AppName:    app,
				IsRelevant: false,
				Reason:     domain.ReasonNotAnalyzed,
			})
			continue
		}
		reason := match.Reason
		if reason == "" {
			reason = "No reason provided"
		}
		verdicts = append(verdicts, domain.RelevanceVerdict{
			AppName:    app,
			IsRelevant: match.IsRelevant,
			Reason:     reason,
		})
	}
	return verdicts, nil
}

func buildClassifyPrompt(task string, apps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the task %q, analyze the following applications and determine if they are relevant or potentially distracting.\n", task)
	b.WriteString(`Consider that:
- Some applications may serve multiple purposes
- Browser apps can be both relevant (for research/documentation) or distracting (social media)
- Development tasks need IDEs, documentation browsers, and terminal apps
- Writing tasks need text editors and research tools
- Design tasks need design software and asset management tools

`)
	fmt.Fprintf(&b, "Applications to analyze: %s\n\n", strings.Join(apps, ", "))
	b.WriteString(`Provide your analysis in a JSON array format like this:
[
  {
    "app": "AppName",
    "isRelevant": true/false,
    "reason": "Brief explanation why"
  }
]

Be sure to include all applications in the response and maintain valid JSON format.`)
	return b.String()
}

// parseVerdictArray extracts the first bracketed substring that
// decodes as a verdict array. Candidates are tried in order of their
// opening bracket; nesting inside JSON strings is respected.
func parseVerdictArray(response string) ([]rawVerdict, bool) {
	for start := 0; start < len(response); start++ {
		if response[start] != '[' {
			continue
		}
		end, ok := matchBracket(response, start)
		if !ok {
			continue
		}
		var parsed []rawVerdict
		if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err == nil && len(parsed) > 0 {
			return parsed, true
		}
	}
	return nil, false
}

// matchBracket returns the index of the ']' balancing the '[' at
// start, skipping brackets inside double-quoted strings.
func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func findVerdict(parsed []rawVerdict, app string) (rawVerdict, bool) {
	for _, v := range parsed {
		if strings.EqualFold(v.App, app) {
			return v, true
		}
	}
	return rawVerdict{}, false
}

// fallbackVerdicts applies the literal-substring heuristic: an app is
// relevant when the response contains "<app> relevant" (case-insensitive).
func fallbackVerdicts(response string, apps []string) []domain.RelevanceVerdict {
	lower := strings.ToLower(response)
	verdicts := make([]domain.RelevanceVerdict, 0, len(apps))
	for _, app := range apps {
		verdicts = append(verdicts, domain.RelevanceVerdict{
			AppName:    app,
			IsRelevant: strings.Contains(lower, strings.ToLower(app)+" relevant"),
			Reason:     "Parsing error - using fallback analysis",
			Fallback:   true,
		})
	}
	return verdicts
}
