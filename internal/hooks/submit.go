package hooks

import (
	"encoding/json"
	"io"
)

func handleSubmit(client *Client, input *HookInput, stdout io.Writer) {
	if input.Prompt == "" {
		WriteContextOutput(stdout, "UserPromptSubmit", "")
		return
	}

	body, err := json.Marshal(map[string]string{"text": input.Prompt})
	if err != nil {
		WriteContextOutput(stdout, "UserPromptSubmit", "")
		return
	}

	data, err := client.Post("/api/sessions/"+input.SessionID+"/update", body)
	if err != nil {
		// An unknown session means the daemon restarted; re-init and retry
		// once so long-lived conversations survive daemon bounces.
		if initBody, merr := json.Marshal(map[string]string{
			"session_id":  input.SessionID,
			"project_dir": input.CWD,
		}); merr == nil {
			if _, ierr := client.Post("/api/sessions/init", initBody); ierr == nil {
				data, err = client.Post("/api/sessions/"+input.SessionID+"/update", body)
			}
		}
		if err != nil {
			WriteContextOutput(stdout, "UserPromptSubmit", "")
			return
		}
	}

	var resp struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		WriteContextOutput(stdout, "UserPromptSubmit", "")
		return
	}

	WriteContextOutput(stdout, "UserPromptSubmit", resp.Context)
}
