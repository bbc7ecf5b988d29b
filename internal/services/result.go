package services

// OperationError classifies why a service operation did not produce output.
type OperationError int

const (
	// OperationNone means the operation succeeded.
	OperationNone OperationError = iota
	// OperationEntityNotFound means the id did not resolve to an entity.
	OperationEntityNotFound
	// OperationUnprocessableEntity means the input was well-formed but
	// violated a business rule (bad reference, duplicate name).
	OperationUnprocessableEntity
	// OperationValidationError means a field-level constraint failed.
	OperationValidationError
	// OperationDatabaseError means the persistence layer failed to save.
	OperationDatabaseError
	// OperationExternalError means a caller-supplied mutation step or an
	// external collaborator reported failure.
	OperationExternalError
)

func (e OperationError) String() string {
	switch e {
	case OperationNone:
		return "None"
	case OperationEntityNotFound:
		return "EntityNotFound"
	case OperationUnprocessableEntity:
		return "UnprocessableEntity"
	case OperationValidationError:
		return "ValidationError"
	case OperationDatabaseError:
		return "DatabaseError"
	case OperationExternalError:
		return "ExternalError"
	default:
		return "Unknown"
	}
}

// OperationResult is the uniform value returned by service mutations.
// Exactly one of Output and a non-None Kind is set: a successful result
// carries the output projection, a failed one carries the error kind and
// at least one field- or category-scoped message.
type OperationResult[T any] struct {
	// Output is the projected result of a successful operation.
	Output *T

	// Errors maps a field or category name to a human-readable message.
	Errors map[string]string

	// Kind classifies the failure; OperationNone on success.
	Kind OperationError

	cause error
}

// Succeeded wraps an output value in a successful result.
func Succeeded[T any](output T) OperationResult[T] {
	return OperationResult[T]{Output: &output}
}

// Failed builds a failed result with the given kind and field errors.
// A kind-scoped message is added when no field errors are supplied, so
// every failure carries at least one message.
func Failed[T any](kind OperationError, errs map[string]string) OperationResult[T] {
	if len(errs) == 0 {
		errs = oneError(kind.String(), defaultMessage(kind))
	}
	return OperationResult[T]{Errors: errs, Kind: kind}
}

func failedCause[T any](kind OperationError, errs map[string]string, cause error) OperationResult[T] {
	result := Failed[T](kind, errs)
	result.cause = cause
	return result
}

// IsSuccessful reports whether the operation produced output.
func (r OperationResult[T]) IsSuccessful() bool {
	return r.Kind == OperationNone
}

// Cause returns the underlying error behind a DatabaseError or
// ExternalError result, for logging. Nil for business failures.
func (r OperationResult[T]) Cause() error {
	return r.cause
}

func defaultMessage(kind OperationError) string {
	switch kind {
	case OperationEntityNotFound:
		return "No entity found with the id provided."
	case OperationDatabaseError:
		return "Failed to save data."
	case OperationExternalError:
		return "The supplied update step reported failure."
	default:
		return "Invalid value."
	}
}

func oneError(key, message string) map[string]string {
	return map[string]string{key: message}
}

func serverError() map[string]string {
	return oneError("Server Error", "Failed to save data.")
}
