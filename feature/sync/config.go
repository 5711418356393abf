package sync

// Config holds tuning knobs for the sync engine and the outbox pusher.
type Config struct {
	// PushBatchSize caps how many queued mutations one push carries.
	PushBatchSize int `mapstructure:"push_batch_size" default:"100"`

	// PushDebounceMillis delays a push after a local write so bursts of
	// writes coalesce into one batch.
	PushDebounceMillis int `mapstructure:"push_debounce_millis" default:"300"`

	// PushIntervalSeconds is the periodic drain interval that picks up
	// mutations left behind by failed pushes.
	PushIntervalSeconds int `mapstructure:"push_interval_seconds" default:"30"`

	// StreamBackoffMillis is the initial delay before resubscribing a
	// failed change stream; it doubles per consecutive failure.
	StreamBackoffMillis int `mapstructure:"stream_backoff_millis" default:"1000"`
}
