// Package internal contains the packages behind the imbui command.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules. The template engine
// itself lives in pkg/cast and is importable.
//
// # Package Organization
//
//   - config: Viper-backed configuration with validation
//   - errors: Typed errors, panic conversion and error collection
//   - logging: Context-aware structured logging over log/slog
//   - middleware: HTTP middleware chain for the preview server
//   - preview: Live preview server replaying a scene
//   - scene: Scene files, value resolution and frame playback
//   - version: Build information
//   - watcher: Debounced file watching with fsnotify
//   - weakmap: Weakly keyed side tables for live nodes
//   - websocket: Client hub pushing frames to browsers
//
// # Inter-Package Communication
//
//   - scene resolves YAML values into cast results and directives, then
//     replays frames through a Player
//   - preview owns one Player on a single goroutine; the watcher feeds it
//     reloads and the websocket hub feeds it browser commands
//   - every package logs through logging.Logger and reports failures as
//     *errors.Error values
package internal
