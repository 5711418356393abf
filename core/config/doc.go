// Package config provides configuration management for shapesync.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: local HTTP API settings (port, API key)
//   - Remote: replication endpoint, auth endpoint and retry budget
//   - Database: local replica driver and connection details
//   - Storage: S3/MinIO archive credentials and bucket settings
//   - Log: logging level and format
//   - Sync: engine tuning (outbox batching, debounce)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Remote.Endpoint)
package config
