// Package ui implements the sporthub API tester as a Bubble Tea program.
//
// The board lists every configured endpoint with its test state
// (untested, testing, ok, stale or failed). Selecting an endpoint shows the
// last result in the detail pane: the error message and status for a
// failure, or the decoded status, message and data for a success. The
// classification endpoint additionally renders the standings table.
//
// The model never talks to the network directly. Actions call into
// state.Store from commands, and the store's query cache wakes the UI
// through the Changes channel whenever an entry settles, so results appear
// without waiting for the next tick.
//
// Components:
//   - app.go: Model, Update loop, messages and Run
//   - board.go: endpoint list, board actions and the titled box
//   - detail.go: result pane and classification standings
//   - logs.go: diagnostic log view
//   - header.go: health status bar and command bar
//   - help.go: keyboard shortcut overlay
//   - keys.go, theme.go: bindings and color themes
package ui
