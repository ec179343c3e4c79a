// Package errors provides classified error primitives used across licht-compile.
//
// A ClassifiedError carries a category, a severity and a free-form context map,
// and is constructed through the fluent ErrorBuilder:
//
//	err := errors.WrapError(cause, errors.CategoryTransform, "sass compilation failed").
//		WithContext("file", "assets/styles/main.scss").
//		Build()
//
// The CLI adapter maps categories to process exit codes and the HTTP adapter
// renders errors raised inside the dev server as JSON.
package errors
