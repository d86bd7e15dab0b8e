// Package preflight provides readiness checks for external services
// and filesystem paths that Hakimi depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup. If any check fails, the
//     workflow does not start, so a bad key is caught before it can fail
//     a paid generation job.
//   - The CLI "hakimi status" command uses individual check functions
//     (CheckSunoFromConfig, CheckDirectoryAccess) to display service health.
//
// Optional features are gated by their config toggles; the core prompt and
// music APIs are always checked.
package preflight
