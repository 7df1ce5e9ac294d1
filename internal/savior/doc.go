// Package savior keeps presenters alive while their container is recreated.
//
// The delegate saves a retained presenter under an opaque id, writes the id
// into the container's saved state and recovers the presenter from the next
// container instance. Ids look like
//
//	CounterPresenter:c000012345:1739712345678901234
//
// and are never reused, even when a freed presenter is saved again.
//
// Two stores are provided:
//
//   - Global ignores the host argument. Every entry lives until it is freed.
//   - Scoped groups entries per host. A host (anything implementing Host) gets
//     a uuid scope the first time it saves a presenter. The host lifecycle is
//     fed through HostCreated, HostSaveState and HostDestroyed: the scope id
//     travels through saved state to the next host instance, and a finishing
//     host drops its whole scope so nothing leaks once the screen is gone for
//     good.
//
// Both serialise every operation on one mutex. Recovering an unknown id is a
// miss, not an error; the caller then creates a fresh presenter.
//
// Metrics are optional. NewMetrics registers three collectors on the given
// prometheus.Registerer:
//
//	anchor_savior_presenters        gauge
//	anchor_savior_scopes            gauge
//	anchor_savior_recover_total     counter, label result=hit|miss
package savior
