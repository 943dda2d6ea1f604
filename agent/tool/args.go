package tool

import "fmt"

// argError marks a problem with the arguments the model supplied. It turns
// into ToolResult.Error so the model can retry, never into a failed turn.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func badArg(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", badArg("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", badArg("%s must be a string", key)
	}
	return value, nil
}

// numberArg accepts float64 (what encoding/json produces) and int.
func numberArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, badArg("%s is required", key)
	}
	switch value := raw.(type) {
	case float64:
		return value, nil
	case int:
		return float64(value), nil
	default:
		return 0, badArg("%s must be a number", key)
	}
}

func intArg(args map[string]any, key string) (int, error) {
	value, err := numberArg(args, key)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// optionalIntArg returns fallback when the key is absent.
func optionalIntArg(args map[string]any, key string, fallback int) (int, error) {
	if _, ok := args[key]; !ok {
		return fallback, nil
	}
	return intArg(args, key)
}
