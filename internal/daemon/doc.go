// Package daemon hosts the long-running import service: it holds the import
// directory lock, owns the workflow controller and serves the HTTP control
// surface. Log events flow from the StreamHub into a Throttle whose signals
// are pushed to websocket clients.
package daemon
