package ai

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/pkg/models"
)

// ParsedFeedback is the interpreted form of model output. Malformed marks
// responses that could not be read as a comment array at all, as opposed to
// a model that genuinely had nothing to say.
type ParsedFeedback struct {
	Comments  []models.ReviewComment
	Malformed bool
}

// Empty reports whether there is nothing to publish.
func (f ParsedFeedback) Empty() bool { return len(f.Comments) == 0 }

// ParseFeedback turns raw model output into structured review comments.
//
// Model output is untrusted: it may be wrapped in markdown fences, carry
// trailing prose, or be outright invalid JSON. The parser strips decoration,
// attempts a strict parse, then a repaired parse, and finally gives up by
// marking the result malformed. A malformed response is never an error; the
// pipeline records an empty review instead of failing the webhook.
func ParseFeedback(raw string) ParsedFeedback {
	cleaned := extractJSONArray(raw)
	if cleaned == "" {
		log.Warn().Msg("AI response contained no JSON array, recording empty feedback")
		return ParsedFeedback{Comments: []models.ReviewComment{}, Malformed: true}
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			log.Warn().Err(err).Msg("AI response is not valid JSON and could not be repaired")
			return ParsedFeedback{Comments: []models.ReviewComment{}, Malformed: true}
		}
		if err := json.Unmarshal([]byte(repaired), &items); err != nil {
			log.Warn().Err(err).Msg("Repaired AI response still failed to parse")
			return ParsedFeedback{Comments: []models.ReviewComment{}, Malformed: true}
		}
	}

	comments := make([]models.ReviewComment, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		file, _ := obj["file"].(string)
		comment, _ := obj["comment"].(string)
		line := 0
		if n, ok := obj["line"].(float64); ok {
			line = int(n)
		}

		if file == "" || comment == "" {
			continue
		}

		comments = append(comments, models.ReviewComment{
			File:    file,
			Line:    line,
			Comment: comment,
		})
	}

	return ParsedFeedback{Comments: comments}
}

// extractJSONArray slices out the outermost JSON array from model output,
// tolerating markdown fences and surrounding prose.
func extractJSONArray(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return ""
	}

	return s[start : end+1]
}
