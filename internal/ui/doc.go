// Package ui is the Bubble Tea demo host for anchor.
//
// # Architecture Overview
//
// The demo runs a single counter screen. Each Screen value is one container
// instance: it implements delegate.Container and savior.Host and is the
// CounterView its presenter drives. The key bindings replay the lifecycle
// events a real host produces, so retention is visible on the status panel:
//
//   - r: configuration change. The screen is destroyed and recreated; the
//     presenter moves to the new instance through the retain channel, or
//     through the savior when "don't keep screens" is on.
//   - b: the screen finishes and a new one opens with a new presenter.
//   - x: process death. The saved state goes to the bbolt store, the savior
//     forgets everything and the screen is rebuilt from the stored bundle.
//   - s: stop and start the screen. Counter values wait in the delivery gate
//     while no view is attached.
//
// # Threading
//
// Everything that touches a Screen runs inside Update. The presenter's feed
// runs on its own goroutine; its values reach the view through
// dispatch.ProgramExecutor, which wakes the program with dispatch.RunMsg.
//
// # Package Structure
//
//   - app.go: Model, Options, the lifecycle actions and Run
//   - screen.go: the container/host/view type
//   - counter.go: the counter presenter and its view wrappers
//   - view.go: rendering
//   - keys.go: key bindings
//   - theme.go: color themes
package ui
