// Package cmd provides the command-line interface for imbui.
//
// # Available Commands
//
//   - render: replay a scene file and print the rendered markup of each frame
//   - inspect: compile a scene's templates and show their parts
//   - serve: serve a live preview of a scene over HTTP and websockets
//   - version: print build information
//
// # Command Examples
//
//	// Print every frame with mutation counts
//	imbui render todo.yml --stats
//
//	// Print only the third frame as JSON
//	imbui render todo.yml --frame 2 --format json
//
//	// Show how the "item" template was compiled
//	imbui inspect todo.yml item
//
//	// Preview on another port, stepping every 500ms
//	imbui serve todo.yml --port 8080 --interval 500ms
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (IMBUI_*)
//  3. Configuration file (.imbui.yml, --config or IMBUI_CONFIG_FILE)
//  4. Default values (lowest priority)
package cmd
