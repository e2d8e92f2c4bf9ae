package tms

// Config holds configuration for the TMS API client.
type Config struct {
	// BaseURL is the root of the TMS REST API.
	BaseURL string `mapstructure:"base_url" default:"https://api.phrase.com/v2"`
	// Token is the API token sent as a Bearer Authorization header.
	Token string `mapstructure:"token" default:""`
	// TimeoutSeconds is the per-request timeout in seconds.
	// It is independent of the retry backoff timers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxAttempts bounds retries for rate-limited and failed connections.
	MaxAttempts int `mapstructure:"max_attempts" default:"10"`
	// RequestsPerSecond paces outgoing requests client-side.
	// Zero disables pacing; the server's 429 responses still apply.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"0"`
	// PageSize is the per_page value used for listing traversals.
	PageSize int `mapstructure:"page_size" default:"100"`
}
