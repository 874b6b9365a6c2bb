/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and the explanatory payloads of session closes.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every
// application error code. The key is the error code (int), and the value
// contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many connection attempts. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Protocol Errors
	ErrProtocol:              {Code: ErrProtocol, Message: "Malformed or unexpected message."},
	ErrOversizedMessage:      {Code: ErrOversizedMessage, Message: "Message exceeds the size limit."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrInvalidUsername:       {Code: ErrInvalidUsername, Message: "Invalid username."},

	// 3xxx: Session Lifecycle Errors
	ErrServerFull:   {Code: ErrServerFull, Message: "The server is full. Please try again later."},
	ErrIdleTimeout:  {Code: ErrIdleTimeout, Message: "Session closed due to inactivity."},
	ErrSlowConsumer: {Code: ErrSlowConsumer, Message: "Session closed: unable to keep up with the stream."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
