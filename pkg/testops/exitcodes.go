// Package testops provides public constants for tools that run the testops
// CLI, such as CI wrappers and framework adapters.
package testops

// Exit codes returned by the testops CLI.
const (
	// ExitSuccess indicates every project accepted its results.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure: a report could not be parsed
	// or at least one project failed to create, fill or complete its run.
	ExitFailure = 1

	// ExitConfigError indicates invalid flags or configuration.
	ExitConfigError = 2

	// ExitEnvError indicates a missing token or an unusable environment.
	ExitEnvError = 3
)
