package notifier

import "fmt"

// Params decoded from YAML arrive as []any and map[string]any, while params
// built in code use concrete types. The helpers below accept both.

// StringParam returns a string parameter
func StringParam(params map[string]any, key string) (string, bool) {
	s, ok := params[key].(string)
	return s, ok
}

// IntParam returns an integer parameter
func IntParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// StringsParam returns a list of strings parameter
func StringsParam(params map[string]any, key string) ([]string, bool) {
	switch v := params[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	}
	return nil, false
}

// StringMapParam returns a string to string mapping parameter
func StringMapParam(params map[string]any, key string) (map[string]string, bool) {
	switch v := params[key].(type) {
	case map[string]string:
		return v, true
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out, true
	}
	return nil, false
}
