// SPDX-License-Identifier: MPL-2.0

// Package issue turns startup failures into actionable, user-facing messages:
// ActionableError carries operation, resource and suggestions, and the issue
// catalog holds Markdown guidance rendered with glamour.
package issue
