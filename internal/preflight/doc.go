// Package preflight provides readiness checks for the directories, the
// library database and the external services animelista talks to.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failing check, so a
//     bad token or an unreachable catalog shows up before the first refresh.
//   - The CLI "animelista check" command renders the results.
//
// Optional services (LLM, ntfy) are reported as skipped when unconfigured.
package preflight
