// Package errors provides standardized error handling patterns for Current components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// event pipeline components: Transient (temporary, retryable), Invalid (bad
// input, non-retryable), and Fatal (unrecoverable, stop processing).
//
// Classification enables components to make informed decisions about retries
// and failure recovery without hardcoded error string matching.
//
// # Error Classification
//
//   - Transient: connection loss, publish failures, temporary unavailability (retry recommended)
//   - Invalid: constructor misuse, malformed records, bad configuration (do not retry)
//   - Fatal: checksum mismatches, unusable configuration (stop processing)
//
// The classification system supports errors.Is(), errors.As(), and error
// wrapping chains from the standard library.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if capacity <= 0 {
//	    return errors.ErrInvalidCapacity
//	}
//
// Wrap errors with context for debugging:
//
//	if err := journal.Append(rec); err != nil {
//	    return errors.Wrap(err, "Persister", "flush", "journal append")
//	}
//
// Check classification for retry logic:
//
//	if err := rep.publish(env); err != nil {
//	    if errors.IsTransient(err) {
//	        // retry with backoff via pkg/retry
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
//
// # Standard Error Variables
//
// Pre-defined variables are grouped by subsystem:
//
//   - Queue lifecycle: ErrQueueClosed, ErrNilConsumer, ErrInvalidCapacity, ErrInvalidPolicy
//   - Journal: ErrJournalClosed, ErrRecordTooShort, ErrChecksumMismatch, ErrSequenceNotFound
//   - Replication: ErrNotConnected, ErrConnectionLost, ErrPublishFailed
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// # Architecture Integration
//
//   - mq: constructor validation returns Invalid-classified errors; Push never returns errors
//   - journal: decode failures surface ErrChecksumMismatch / ErrRecordTooShort
//   - replication: publish paths wrap transport failures as Transient for retry
//   - pkg/retry: retries only errors the classification marks Transient
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
