package match

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var controlCharsRe = regexp.MustCompile(`[\x00-\x1f]+`)

// ParseResponse turns raw model output into a BestMatch. Control characters
// are replaced with a space before parsing so that stray newlines inside JSON
// strings do not break decoding.
func ParseResponse(raw string) (*BestMatch, error) {
	cleaned := extractJSON(cleanControlChars(raw))
	if cleaned == "" {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("empty response")}
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: err}
	}
	if decoded == nil {
		return nil, shapeError("expected a JSON object, got null")
	}
	data, ok := decoded.(map[string]any)
	if !ok {
		return nil, shapeError(fmt.Sprintf("expected a JSON object, got %s", jsonKind(decoded)))
	}

	var result BestMatchResult
	if problems := decodeStrict(resultFields(data), &result); len(problems) > 0 {
		return nil, shapeError(problems...)
	}

	return &BestMatch{Result: result, Raw: data}, nil
}

// resultFields keeps only the keys of BestMatchResult so extra keys are
// passed through without being checked.
func resultFields(data map[string]any) map[string]any {
	fields := make(map[string]any, 3)
	for _, key := range []string{"recipient_id", "recipient_name", "justification"} {
		if value, ok := data[key]; ok {
			fields[key] = value
		}
	}
	return fields
}

func cleanControlChars(raw string) string {
	return controlCharsRe.ReplaceAllString(raw, " ")
}

// extractJSON drops a markdown code fence around the payload, if any.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
