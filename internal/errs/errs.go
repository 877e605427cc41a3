// Package errs defines the error taxonomy shared by the engine, the plugin
// registry and the builtin plugins.
//
// Every failure is reported by wrapping one of the sentinel errors below with
// fmt.Errorf and %w, so callers can classify an error with errors.Is no matter
// how deep in the tree it was raised.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInputValidation reports malformed phase arguments, e.g. an empty
	// group key list.
	ErrInputValidation = errors.New("InputValidationError")
	// ErrInvalidGrouping reports an item that lacks a required group field.
	ErrInvalidGrouping = errors.New("InvalidGroupingError")
	// ErrStructureMalformed reports a tree node whose shape cannot be processed.
	ErrStructureMalformed = errors.New("StructureMalformedError")
	// ErrGlobalConfig reports a plugin invocation lacking required configuration.
	ErrGlobalConfig = errors.New("GlobalConfigError")
	// ErrManifestValidation reports inconsistent parameter metadata or an
	// invalid manifest section.
	ErrManifestValidation = errors.New("ManifestValidationError")
	// ErrModelInitialization reports a plugin that could not be resolved.
	ErrModelInitialization = errors.New("ModelInitializationError")
	// ErrModelCredential reports a plugin that could not authenticate.
	ErrModelCredential = errors.New("ModelCredentialError")
	// ErrMissingAggregationParam reports an aggregation metric absent from an item.
	ErrMissingAggregationParam = errors.New("MissingAggregationParamError")
	// ErrInvalidAggregationParams reports an unusable aggregation request.
	ErrInvalidAggregationParams = errors.New("InvalidAggregationParamsError")
	// ErrManifestParse reports a manifest file that could not be decoded.
	ErrManifestParse = errors.New("ManifestParseError")
)

var all = []error{
	ErrInputValidation,
	ErrInvalidGrouping,
	ErrStructureMalformed,
	ErrGlobalConfig,
	ErrManifestValidation,
	ErrModelInitialization,
	ErrModelCredential,
	ErrMissingAggregationParam,
	ErrInvalidAggregationParams,
	ErrManifestParse,
}

// New wraps kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Name returns the taxonomy class of err, or "Error" when err does not wrap
// any known kind.
func Name(err error) string {
	for _, kind := range all {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "Error"
}
