// Package delegate connects a container's lifecycle to its presenter.
//
// A container (a screen of the host UI) owns one Delegate and forwards its
// lifecycle callbacks:
//
//	OnCreate(saved) -> OnStart() -> OnStop() -> OnSaveInstanceState(out) -> OnDestroy()
//
// The delegate's own state machine (new, created, started, stopped,
// destroyed) rejects callbacks in the wrong order with an error matching
// presenter.ErrIllegalState.
//
// # Create
//
// The presenter is looked up in this order:
//
//  1. The Retainer: the previous container instance handed it over directly.
//  2. The Savior, using the id stored under bundle.KeyPresenterID in saved.
//  3. The presenter factory, called at most once. It must return a presenter
//     that is still INITIALIZED.
//
// A recovered presenter is freed from its old savior id and saved under a
// fresh one, so the old container instance can't free the entry out from
// under the new owner. A new presenter is saved when its config asks for
// savior retention. Then the main-thread and distinct interceptors are
// installed according to the presenter config, the UI executor is bound
// while a view is attached, and the presenter is created.
//
// # Start and stop
//
// OnStart posts the view bind to the container so the host finishes its own
// start sequence first. If OnStop ran before the posted bind, the bind is
// skipped. OnStop detaches synchronously.
//
// # Destroy
//
// The presenter is destroyed (and freed from the savior) when
//
//   - the container is finishing, or
//   - the presenter is not retained, or
//   - no savior is used, the container is not changing configuration and the
//     host can't retain objects between instances.
//
// Otherwise it stays alive for the next container instance.
package delegate
