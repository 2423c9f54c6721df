// Package preflight provides readiness checks for the filesystem paths,
// disk headroom, and engine dependencies a conversion run needs.
//
// These checks run in two contexts:
//   - The CLI refuses to start a batch when a blocking check fails, so a
//     doomed run is caught before any job leaves the pending state.
//     Advisory checks (the engine artifact endpoint) only warn; the
//     simulated pipeline keeps a batch viable without them.
//   - The status command uses the individual check functions to display
//     environment health.
//
// Checks gate on configuration -- an unset output directory or artifact
// endpoint is skipped, not failed.
package preflight
