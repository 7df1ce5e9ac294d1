// Package app is the composition root of the anchor demo.
//
// # Overview
//
// Run wires configuration, logging, the saved-state store, the savior and
// the counter feed together and hands them to the Bubble Tea host in
// package ui.
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read ~/.config/anchor/config.toml
//	       ├─────> newLogger()            zap, JSON lines to log_path
//	       ├─────> statestore.Open()      bbolt file for process death
//	       ├─────> savior.NewMetrics()    prometheus registry
//	       ├─────> savior.NewScoped()     host-scoped presenter store
//	       └─────> ui.Run()               Start TUI (blocks)
//
//	Counter feed, one per presenter:
//	┌─────────────────────────────────────────┐
//	│ StartTicker() goroutine                 │
//	│  └─> chan int ─> deliver.Consume()      │
//	│       └─> deliver.Gate (policy)         │
//	│            └─> presenter.SendToView()   │
//	└─────────────────────────────────────────┘
//
// # Error Handling
//
// Configuration, store and logger failures are returned from Run before the
// UI starts. Lifecycle errors end the program and are returned as well.
// Diagnostics go to the log file and to the UI's event pane.
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{Delivery: "latest"}); err != nil {
//		log.Fatalf("anchor-demo failed: %v", err)
//	}
package app
