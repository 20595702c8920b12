package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ContextOutput is the JSON structure the host expects on stdout when a hook
// contributes additional context to the conversation.
type ContextOutput struct {
	HookSpecificOutput struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
}

// WriteContextOutput writes a context response for the named event to w.
func WriteContextOutput(w io.Writer, event, context string) error {
	out := ContextOutput{}
	out.HookSpecificOutput.HookEventName = event
	out.HookSpecificOutput.AdditionalContext = context
	return json.NewEncoder(w).Encode(out)
}

// ExitError logs to stderr and exits 0. Hooks must never fail the host.
func ExitError(err error) {
	fmt.Fprintf(os.Stderr, "salience hook: %v\n", err)
	os.Exit(0)
}
