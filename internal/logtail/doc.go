// Package logtail reads the tail of sporthub's diagnostic log for display.
//
// # Overview
//
// The TUI owns the terminal, so sporthub writes its slog output as JSON to a
// log file. The log pane reads the last lines of that file with Read and
// turns each JSON record into a compact line with Parse and Format.
//
// # Reading Log Files
//
// Read uses a ring buffer to keep the last maxLines lines:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in chronological order
//   - A non-positive maxLines returns the whole file
//   - A missing file returns no lines and no error
//
// Lines longer than 1MB fail the scan.
//
// # Formatting Records
//
//	{"time":"...","level":"ERROR","msg":"API request failed","status":503}
//	→ 21:01:05 ERROR API request failed status=503
//
// time, level and msg are lifted out; the remaining attributes are sorted by
// key. Values containing whitespace are quoted. Lines that are not JSON
// objects pass through unchanged.
//
// Styling is left to the UI, which colors by Entry.Level.
package logtail
