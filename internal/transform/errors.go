// Package transform holds the transformer registry and the built-in
// column transformers.
//
// Transformers are pure: they read the column and dataset they are given and
// return a new column, never modifying their inputs. A registered transformer
// is described by a data-valued Spec, so recommendations can be validated
// without executing anything.
package transform

import "errors"

// Registry and validation errors.
var (
	// ErrDuplicateTransformer is returned when registering a name twice.
	ErrDuplicateTransformer = errors.New("transformer already registered")
	// ErrUnknownTransformer is returned for names absent from the registry.
	ErrUnknownTransformer = errors.New("unknown transformer")
	// ErrUnknownColumn is returned when a recommendation names a column the
	// dataset does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrTypeMismatch is returned when a transformer does not apply to the
	// column's type.
	ErrTypeMismatch = errors.New("transformer not applicable to column type")
	// ErrInvalidParameter is returned for missing, unknown, or out-of-range
	// parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrTransformFailed wraps runtime failures during application.
	ErrTransformFailed = errors.New("transformation failed")
)
