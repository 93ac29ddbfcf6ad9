package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pdfrelay/internal/api"
)

type healthMsg api.HealthzResponse

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type tickMsg time.Time

var httpClient = &http.Client{Timeout: 5 * time.Second}

// fetchHealth polls GET /healthz and converts the response into a
// BubbleTea message.
func fetchHealth(apiURL string) interface{} {
	resp, err := httpClient.Get(apiURL + "/healthz")
	if err != nil {
		return errMsg{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errMsg{fmt.Errorf("healthz returned status %d", resp.StatusCode)}
	}

	var health api.HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return errMsg{fmt.Errorf("decode healthz: %w", err)}
	}
	return healthMsg(health)
}
