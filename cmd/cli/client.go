package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/axellelanca/shortlink/cmd"
)

// The data commands talk HTTP to a running 'run-server' process: the registry
// is in-memory inside the server, so there is no database to open from a
// separate CLI process. The base URL comes from the shared configuration.

// httpClient is shared by all CLI subcommands.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// apiBaseURL returns the server base URL from the loaded configuration.
func apiBaseURL() string {
	if cmd.Cfg != nil && cmd.Cfg.Server.BaseURL != "" {
		return cmd.Cfg.Server.BaseURL
	}
	return "http://localhost:8080"
}

// decodeAPIError extracts the most useful message from an error response
// body: a per-field errors map when present, else the general error string.
func decodeAPIError(body []byte) string {
	var payload struct {
		Error  string            `json:"error"`
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	if len(payload.Errors) > 0 {
		msg := ""
		for field, fieldMsg := range payload.Errors {
			if msg != "" {
				msg += "; "
			}
			msg += fmt.Sprintf("%s: %s", field, fieldMsg)
		}
		return msg
	}
	return payload.Error
}
