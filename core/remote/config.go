package remote

// Config holds configuration for the remote replication endpoint.
type Config struct {
	// Enabled turns synchronization on. When false, startSync short-circuits
	// to the "disabled" status without any network call.
	Enabled bool `mapstructure:"enabled" default:"true"`

	// Endpoint is the base URL of the replication API.
	Endpoint string `mapstructure:"endpoint" default:"http://localhost:3000"`

	// AuthURL is the credential endpoint used by the token provider.
	AuthURL string `mapstructure:"auth_url" default:""`

	// AuthSecret is sent to the credential endpoint as X-Auth-Secret.
	AuthSecret string `mapstructure:"auth_secret" default:""`

	// StaticToken bypasses the credential endpoint (local development).
	StaticToken string `mapstructure:"static_token" default:""`

	// TimeoutSeconds bounds snapshot and mutation push requests.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`

	// Attempts is the bounded retry budget for remote calls.
	Attempts int `mapstructure:"attempts" default:"5"`

	// BackoffMillis is the initial retry delay; it doubles per attempt.
	BackoffMillis int `mapstructure:"backoff_millis" default:"500"`
}
