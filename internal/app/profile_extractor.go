package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"childhood-friend/internal/ai"
	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

// ProfileExtractor asks the model which person columns a text mentions and
// writes whatever it recognizes. Results are best effort.
type ProfileExtractor struct {
	personRepo *repository.PersonRepository
	llm        ChatCompleter
	log        *logger.Logger
}

func NewProfileExtractor(personRepo *repository.PersonRepository, llm ChatCompleter, log *logger.Logger) *ProfileExtractor {
	return &ProfileExtractor{
		personRepo: personRepo,
		llm:        llm,
		log:        log.With("service", "ProfileExtractor"),
	}
}

// Extract returns the number of columns updated.
func (e *ProfileExtractor) Extract(ctx context.Context, job model.ProfileExtractJob) (int, error) {
	text := strings.TrimSpace(job.Text)
	if job.PersonID == 0 || text == "" {
		return 0, nil
	}

	raw, err := e.llm.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: profileExtractPrompt},
		{Role: ai.RoleUser, Content: "다음 대화를 분석해주세요:\n\n" + text},
	}, ai.CompletionOptions{JSONObject: true})
	if err != nil {
		return 0, fmt.Errorf("profile extraction request failed: %w", err)
	}

	fields := parseProfileFields(raw)
	if len(fields) == 0 {
		e.log.Debug("no profile fields recognized", "person_id", job.PersonID)
		return 0, nil
	}

	n, err := e.personRepo.UpdateFields(ctx, job.PersonID, fields)
	if err != nil {
		return 0, err
	}
	e.log.Info("person profile updated", "person_id", job.PersonID, "columns", n)
	return n, nil
}

// parseProfileFields keeps scalar values only. Code fences around the JSON
// are tolerated. Anything unparsable yields an empty map.
func parseProfileFields(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}

	fields := make(map[string]string, len(decoded))
	for key, value := range decoded {
		column := strings.ToLower(strings.TrimSpace(key))
		if column == "nbti" {
			column = "mbti"
		}
		if _, ok := model.PersonWritableColumns[column]; !ok {
			continue
		}
		var s string
		switch v := value.(type) {
		case string:
			s = strings.TrimSpace(v)
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}
		if s == "" {
			continue
		}
		fields[column] = s
	}
	return fields
}
