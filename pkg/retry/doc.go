// Package retry provides exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, designed
// to handle transient failures in journal writes, NATS publishing, and resource
// initialization.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//   - Permanent: Mark an error so it is never retried
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (component startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Retry with result:
//
//	stream, err := retry.DoWithResult(ctx, retry.Quick(), func() (jetstream.Stream, error) {
//	    return js.Stream(ctx, streamName)
//	})
//
// Stopping early on unfixable errors:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if err := validate(input); err != nil {
//	        return retry.Permanent(err)
//	    }
//	    return send(input)
//	})
//
// # Error Classification
//
// Do consults the errors package: errors classified as fatal or invalid stop
// the loop immediately, since repeating a checksum mismatch or a bad
// configuration cannot succeed. Unclassified errors are assumed transient.
// Permanent() overrides classification for one call site.
//
// # Context Cancellation
//
// All retry operations respect context cancellation and will immediately stop
// retrying when the context is cancelled, either during operation execution or
// during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. Jitter is drawn from a
// lock-free random source, so concurrent retry loops never contend.
package retry
