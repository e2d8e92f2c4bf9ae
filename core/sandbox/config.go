package sandbox

// Config holds configuration for the local sandbox API server.
type Config struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr" default:":8090"`
	// Token is the API token the sandbox accepts. Empty disables auth.
	Token string `mapstructure:"token" default:""`
}
