// Package config loads the anchor demo configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/anchor/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// # TOML Format
//
//	[presenter]
//	retain = true
//	use_savior = true
//	call_on_main_thread = true
//	distinct_until_changed = true
//
//	[ui]
//	theme = "Dracula"
//	state_path = "~/.local/share/anchor/state.db"
//	log_path = ""
//	log_level = "info"
//	delivery = "latest-cache"
//	tick_every = "1s"
//
// Every field is optional. The presenter section becomes the
// presenter.Config handed to each presenter the demo creates; a missing key
// keeps the default (enabled). Tilde expansion is performed for state_path
// and log_path.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than a
// missing file, TOML parse errors and an unparsable tick_every. A missing
// file is not an error.
//
// The package keeps no global state: the composition root loads a Config
// once and passes it down.
package config
