package llm

import (
	"encoding/json"
	"strings"

	"codewiki/internal/logging"
)

// RepairToolArguments normalizes tool-call arguments before decoding. Some
// providers serialize JSON-array fields as JSON-encoded strings; for any
// string-typed argument whose value begins with "[" and parses as a JSON
// array of strings, the string is replaced with the decoded array. The
// repair is logged; every other argument passes through unchanged.
func RepairToolArguments(rawArgs string) (string, bool) {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return rawArgs, false
	}

	repaired := false
	for key, value := range args {
		str, ok := value.(string)
		if !ok || !strings.HasPrefix(strings.TrimSpace(str), "[") {
			continue
		}
		var decoded []string
		if err := json.Unmarshal([]byte(str), &decoded); err != nil {
			continue
		}
		args[key] = decoded
		repaired = true
		logging.APIDebug("shape repair: argument %q decoded from string to %d-element array", key, len(decoded))
	}
	if !repaired {
		return rawArgs, false
	}

	out, err := json.Marshal(args)
	if err != nil {
		return rawArgs, false
	}
	return string(out), true
}
