package errors

import "time"

// New creates an AppError in the given category.
func New(category ErrorCategory, code, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		Category:  category,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// SystemError creates a SYSTEM category error instance.
func SystemError(code, message string, err error) *AppError {
	return New(ErrCategorySystem, code, message, err)
}

// NetworkError creates a NETWORK category error instance. Network failures are
// marked recoverable: rerunning once the store is reachable is expected to work.
func NetworkError(code, message string, err error) *AppError {
	return New(ErrCategoryNetwork, code, message, err).WithRecoverable(true)
}

// ConfigError creates a CONFIG category error instance.
func ConfigError(code, message string, err error) *AppError {
	return New(ErrCategoryConfig, code, message, err)
}

// ValidationError creates a VALIDATION category error instance.
func ValidationError(code, message string, err error) *AppError {
	return New(ErrCategoryValidation, code, message, err)
}

// DatabaseError creates a DATABASE category error instance.
func DatabaseError(code, message string, err error) *AppError {
	return New(ErrCategoryDatabase, code, message, err)
}

// CodeForCategory returns the generic code of a category.
func CodeForCategory(category ErrorCategory) string {
	switch category {
	case ErrCategoryNetwork:
		return CodeNetworkGeneric
	case ErrCategoryConfig:
		return CodeConfigGeneric
	case ErrCategoryValidation:
		return CodeValidationGeneric
	case ErrCategoryDatabase:
		return CodeDatabaseGeneric
	default:
		return CodeSystemGeneric
	}
}
