// Package main hosts the oepma CLI entrypoint and command graph.
//
// Commands either drive an import run in the foreground (stage, materialize,
// run), host the long-running daemon with its HTTP API (serve), or talk to
// that API (status, trigger, cancel, logs). Staging and repository inspection
// work directly against the import directory and the artifact database.
package main
