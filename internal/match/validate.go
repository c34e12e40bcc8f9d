package match

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const noPayloadMessage = "No JSON data provided"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseRequest decodes a raw request body and validates it.
func ParseRequest(body []byte) (*MatchRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, validationError(noPayloadMessage)
	}

	var input any
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, validationError(fmt.Sprintf("malformed JSON: %s", err))
	}

	return ValidateRequest(input)
}

// ValidateRequest turns an already decoded JSON value into a MatchRequest.
// Every defect found is reported, not only the first one.
func ValidateRequest(input any) (*MatchRequest, error) {
	if input == nil {
		return nil, validationError(noPayloadMessage)
	}

	payload, ok := input.(map[string]any)
	if !ok {
		return nil, validationError(fmt.Sprintf("request must be a JSON object, got %s", jsonKind(input)))
	}
	if len(payload) == 0 {
		return nil, validationError(noPayloadMessage)
	}

	var req MatchRequest
	if problems := decodeStrict(payload, &req); len(problems) > 0 {
		return nil, validationError(problems...)
	}

	if problems := checkRules(&req); len(problems) > 0 {
		return nil, validationError(problems...)
	}

	return &req, nil
}

func checkRules(req *MatchRequest) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	sort.Strings(problems)

	return problems
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if _, rest, found := strings.Cut(path, "."); found {
		path = rest
	}

	switch fe.Tag() {
	case "latitude":
		return fmt.Sprintf("field '%s' must be a latitude in [-90, 90], got %v", path, fe.Value())
	case "longitude":
		return fmt.Sprintf("field '%s' must be a longitude in [-180, 180], got %v", path, fe.Value())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("field '%s' must contain at least %s item(s)", path, fe.Param())
		}
		return fmt.Sprintf("field '%s' must be >= %s, got %v", path, fe.Param(), fe.Value())
	case "unique":
		return fmt.Sprintf("field '%s' must not repeat %s values", path, strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("field '%s' failed '%s' check", path, fe.Tag())
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
