// Package token acquires and caches the bearer credential used to
// authenticate against the remote replication endpoint.
//
// The Provider fetches a token from the configured auth endpoint on first
// use and serves it from cache afterwards. Invalidate clears the cache so
// the next call re-fetches; callers invoke it after the remote endpoint
// rejects the credential.
//
// Fetch and validation failures are returned as *AuthError so the sync
// engine can classify a failed sync as an authentication problem without
// inspecting message text.
package token
