// Package logging provides file-based JSON logging with rotation for baysets.
// When the --debug flag is set, debug-level logs are written to ~/.baysets/logs/
// for debugging and troubleshooting.
//
// Without --debug, the build and serve commands still log at info level to
// the same rotating file (serve in MCP mode also copies its logs to
// stderr), and "daemon start -f" logs at debug level to that file and
// stderr; the other commands set up no logging of their own.
package logging
