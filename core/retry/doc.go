// Package retry provides a bounded retry-with-backoff helper used uniformly
// by the token provider, the remote shape client, full-table sync attempts
// and the outbox pusher.
//
// Do runs a function up to a fixed number of attempts, doubling the delay
// between attempts up to a cap. Errors wrapped with Permanent stop the loop
// immediately; they represent failures that retrying cannot fix (validation
// rejections, authentication failures).
//
// # Usage
//
//	err := retry.Do(ctx, 5, 500*time.Millisecond, func() error {
//	    return client.Push(ctx, batch)
//	})
package retry
