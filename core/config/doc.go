// Package config provides configuration management for the toolkit.
//
// It utilizes Viper for loading configuration from environment variables
// and a local .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all settings, divided
// into subsections:
//   - API: TMS endpoint, token, retry and pagination tuning
//   - Log: logging level and format
//   - Database: optional run-history MySQL connection
//   - Storage: object-storage credentials for s3:// import inputs
//   - Sandbox: local rehearsal API server
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.BaseURL)
package config
