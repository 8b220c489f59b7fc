// Package preflight provides system validation and pre-flight checks to
// ensure the builder can construct a computed index successfully before it
// starts walking a PairSource.
//
// The package validates:
//   - Disk space availability in the target index directory (minimum 100MB)
//   - Memory availability (minimum 1GB, compared against a fixed 4GB
//     estimate rather than a measured value)
//   - Write permissions in the index directory
//   - File descriptor limits (minimum 1024)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/index/dir")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
