package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Handle reads HookInput from stdin, dispatches on the event argument, and
// writes any hook output to stdout. Every path degrades gracefully: a dead
// daemon or bad input produces empty context and a zero exit, never an error
// the host would surface.
func Handle(event string, stdin io.Reader) {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		// Stdin may be empty for some events.
		switch event {
		case "start":
			WriteContextOutput(os.Stdout, "SessionStart", "")
		case "submit":
			WriteContextOutput(os.Stdout, "UserPromptSubmit", "")
		}
		return
	}

	client := NewClient()
	if !client.Healthy() {
		switch event {
		case "start":
			WriteContextOutput(os.Stdout, "SessionStart", "")
		case "submit":
			WriteContextOutput(os.Stdout, "UserPromptSubmit", "")
		}
		return
	}

	switch event {
	case "start":
		handleStart(client, &input, os.Stdout)
	case "submit":
		handleSubmit(client, &input, os.Stdout)
	case "end":
		handleEnd(client, &input)
	default:
		ExitError(fmt.Errorf("unknown hook event: %s", event))
	}
}
