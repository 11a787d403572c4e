// Package manager drives the active model through its load lifecycle:
// idle, downloading, loading, loaded, failed. It is structured into small
// files by concern:
//
//   - manager.go: core Manager type, constructor, state snapshots and observers.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: Phase, LoadState and Progress value types.
//   - errors.go: sentinel errors and IsX helpers.
//   - ensure.go: Select/SwitchTo/EnsureLoaded, the guarded load transition.
//   - ops.go: Prefetch and Cancel.
//   - unload.go: Unload and Invalidate.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus transition counters.
//   - sanity.go: runtime dependency report for startup and the sanity command.
//
// Transitions are serialized: a Select issued while another transition is
// in flight waits for it to resolve. LoadState is replaced as a whole value
// so observers never see a partially updated state.
package manager
