// Package logging provides slog loggers with per-module levels.
//
// Records are routed to stdout (text or json), to the systemd journal when
// journald is reachable, and to an in-memory history ring that backs the log
// stream endpoint of the HTTP API.
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"pipeline": "debug"},
//	})
//	logger := logging.GetLogger("pipeline").With("stream", 0)
//
// Module levels can be changed at runtime with SetModuleLevel.
package logging
