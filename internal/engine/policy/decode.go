package policy

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// decodeOutput parses a model reply into an NPCOutput. Model replies are
// frequently wrapped in markdown fences or surrounded by prose, so three
// attempts are made in order: the raw text, the first fenced block, and
// the outermost brace span.
func decodeOutput(text string) (domain.NPCOutput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.NPCOutput{}, fmt.Errorf("%w: empty completion text", ErrMalformedOutput)
	}

	var output domain.NPCOutput
	if err := json.Unmarshal([]byte(text), &output); err == nil {
		return output, nil
	}

	if match := codeFencePattern.FindStringSubmatch(text); match != nil {
		if err := json.Unmarshal([]byte(match[1]), &output); err == nil {
			return output, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &output); err == nil {
			return output, nil
		}
	}

	return domain.NPCOutput{}, fmt.Errorf("%w: completion text is not valid JSON", ErrMalformedOutput)
}
