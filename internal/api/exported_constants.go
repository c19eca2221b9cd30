package api

// JSONKeyError is the response key used for API error codes.
const JSONKeyError = jsonKeyError

// JSONKeyMessage is the response key used for human-readable messages.
const JSONKeyMessage = jsonKeyMessage

// ErrorValueNotFound indicates a missing space or testimonial.
const ErrorValueNotFound = errorValueNotFound

// ErrorValueForbidden indicates the caller does not own the resource.
const ErrorValueForbidden = errorValueForbidden

// ErrorValueConflict indicates a slug or state conflict.
const ErrorValueConflict = errorValueConflict

// ErrorValueValidationFailed indicates rejected input fields.
const ErrorValueValidationFailed = errorValueValidationFailed

// ErrorValueRateLimited indicates the intake throttle rejected a submission.
const ErrorValueRateLimited = errorValueRateLimited

// AuthErrorUnauthorized indicates a missing or invalid bearer token.
const AuthErrorUnauthorized = authErrorUnauthorized
