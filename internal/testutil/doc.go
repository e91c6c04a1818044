// Package testutil contains internal helpers used by tests across packages.
// Not part of the public API.
package testutil
