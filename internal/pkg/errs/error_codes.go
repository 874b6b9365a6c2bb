/*
Package errs provides custom error types and application-level error code constants.

These codes identify specific protocol or session failures both internally and
in the explanatory messages sent to clients before a session is closed.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the connection rate exceeded the set limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Protocol Errors
const (
	// ErrProtocol indicates a malformed or unexpected envelope.
	ErrProtocol = 2101

	// ErrOversizedMessage indicates an envelope exceeding the configured size cap.
	ErrOversizedMessage = 2102

	// ErrMessageContentTooLong indicates chat content exceeding the maximum
	// length. Unlike the codes above it does not close the session.
	ErrMessageContentTooLong = 2103

	// ErrInvalidUsername indicates a join request with an unusable display name.
	ErrInvalidUsername = 2104
)

// 3xxx: Session Lifecycle Errors
const (
	// ErrServerFull indicates the registry reached its configured connection limit.
	ErrServerFull = 3101

	// ErrIdleTimeout indicates a session closed for lack of inbound traffic.
	ErrIdleTimeout = 3102

	// ErrSlowConsumer indicates a session closed because its outbound backlog
	// exceeded the cap.
	ErrSlowConsumer = 3103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown is the fallback code for unclassified failures.
	ErrUnknown = 5001
)
