package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

func handleStart(client *Client, input *HookInput, stdout io.Writer) {
	body, err := json.Marshal(map[string]string{
		"session_id":  input.SessionID,
		"project_dir": input.CWD,
	})
	if err != nil {
		WriteContextOutput(stdout, "SessionStart", "")
		return
	}

	data, err := client.Post("/api/sessions/init", body)
	if err != nil {
		WriteContextOutput(stdout, "SessionStart", "")
		return
	}

	var resp struct {
		Project        string `json:"project"`
		RecentSessions []struct {
			EndTime time.Time `json:"end_time"`
			Outcome string    `json:"outcome"`
		} `json:"recent_sessions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		WriteContextOutput(stdout, "SessionStart", "")
		return
	}

	WriteContextOutput(stdout, "SessionStart", startContext(resp.Project, len(resp.RecentSessions)))
}

// startContext builds the one-line session opener. Empty when there is
// nothing worth saying.
func startContext(project string, recent int) string {
	if recent == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Salience: %d recent session", recent)
	if recent != 1 {
		b.WriteString("s")
	}
	if project != "" {
		fmt.Fprintf(&b, " on %s", project)
	}
	b.WriteString("; relevant memories will surface as topics develop.")
	return b.String()
}
