package api

// SuccessEnvelope wraps every 200 response.
type SuccessEnvelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

// ErrorEnvelope wraps every failure response.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status           string           `json:"status"`
	UptimeSeconds    int64            `json:"uptime_seconds"`
	ArtifactsLive    int              `json:"artifacts_live"`
	ExpiriesPending  int              `json:"expiries_pending"`
	OperationsServed map[string]int64 `json:"operations_served"`
}
