// Package errors provides the classified error primitives used across quicksip.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a
// category (what went wrong), a severity (whether the pipeline may continue) and
// free-form context. The categories map onto the pipeline's error taxonomy:
//
//   - CategoryConfig: malformed or self-contradictory configuration, rejected
//     before any stage runs.
//   - CategoryStyles: a style compile failure; reported, never aborts siblings
//     unless the styles fail-on-error policy is enabled.
//   - CategoryBundle: a script bundling failure; fatal only when
//     browserify.fail_on_error is set and the pipeline is not watching.
//   - CategoryFileSystem: resource copy/delete failures; always propagated.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "copy resource failed").
//		Fatal().
//		WithContext("path", relPath).
//		Build()
package errors
