// Package giterror provides error inspection capabilities for GitHub API errors.
// It centralizes the logic for identifying the class of a failure (auth, rate
// limit, node limit, network) so callers can map it to a sentinel error and an
// exit code.
package giterror
