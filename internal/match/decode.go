package match

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var unsetFieldsRe = regexp.MustCompile(`^'(.*)' has unset fields: (.*)$`)

// decodeStrict decodes input into out without weak typing and reports every
// missing or mistyped field. Keys match case-sensitively. JSON nulls in
// objects are treated as missing values; nulls inside arrays are rejected.
func decodeStrict(input map[string]any, out any) []string {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnset: true,
		DecodeHook: integralHook,
		MatchName:  exactName,
		Result:     out,
	})
	if err != nil {
		return []string{fmt.Sprintf("building decoder: %s", err)}
	}

	var problems []string
	cleaned := withoutNulls(input, "", &problems)

	if err := decoder.Decode(cleaned); err != nil {
		var merr *mapstructure.Error
		if !errors.As(err, &merr) {
			problems = append(problems, err.Error())
		} else {
			for _, msg := range merr.Errors {
				problems = append(problems, rewriteUnset(msg)...)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)

	return problems
}

func exactName(mapKey, fieldName string) bool {
	return mapKey == fieldName
}

// rewriteUnset expands "'a.b' has unset fields: x, y" into one problem per
// fully qualified field.
func rewriteUnset(msg string) []string {
	groups := unsetFieldsRe.FindStringSubmatch(msg)
	if groups == nil {
		return []string{msg}
	}

	parent := groups[1]
	fields := strings.Split(groups[2], ", ")
	problems := make([]string, 0, len(fields))
	for _, field := range fields {
		path := field
		if parent != "" {
			path = parent + "." + field
		}
		problems = append(problems, fmt.Sprintf("field '%s' is required", path))
	}

	return problems
}

func integralHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, _ := data.(float64)
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("integer %v is out of range", f)
		}
	}

	return data, nil
}

// withoutNulls drops null object members and records null array elements in
// problems, named by their path.
func withoutNulls(in map[string]any, path string, problems *[]string) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		if value == nil {
			continue
		}
		out[key] = stripNulls(value, joinPath(path, key), problems)
	}
	return out
}

func stripNulls(v any, path string, problems *[]string) any {
	switch val := v.(type) {
	case map[string]any:
		return withoutNulls(val, path, problems)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				*problems = append(*problems, fmt.Sprintf("field '%s' must not be null", itemPath))
				continue
			}
			items[i] = stripNulls(item, itemPath, problems)
		}
		return items
	default:
		return v
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
