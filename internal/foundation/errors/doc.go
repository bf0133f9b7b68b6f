// Package errors provides the classified error primitives used across mdxbuilder.
//
// Errors carry a category (content, toolchain, reconcile, ...), a severity, a
// retry strategy and structured context. The CLI adapter turns them into exit
// codes and user-facing messages.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryContent, "ambiguous component").
//		WithContext("file", path).
//		WithHint("add an explicit import").
//		Build()
package errors
