// Package cli provides the command-line interface for mqfacade.
//
// Commands:
//   - serve: Run the HTTP query facade in the foreground
//   - validate: Check a configuration file without starting anything
//   - key: Build or parse an endpoint key
//   - probe: Connect once to a queue manager and print its name
//   - version: Show version and transport information
//
// Persistent flags --config, --log-level, --log-format and --json apply to
// every command.
//
// Usage:
//
//	mqfacade serve --config config/config.yaml
//	mqfacade validate prod.yaml
//	mqfacade key APP.SVRCONN@mq1.example.com:1414
//	mqfacade probe mq8 --timeout 5s
package cli
