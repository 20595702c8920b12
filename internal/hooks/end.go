package hooks

import "encoding/json"

func handleEnd(client *Client, input *HookInput) {
	outcome := input.Reason
	if outcome == "" {
		outcome = "completed"
	}
	body, err := json.Marshal(map[string]string{"outcome": outcome})
	if err != nil {
		ExitError(err)
		return
	}
	if _, err := client.Post("/api/sessions/"+input.SessionID+"/end", body); err != nil {
		ExitError(err)
		return
	}
}
