// Package api defines wire-format types and converters for the HTTP control
// surface. It translates workflow, staging, repository and log models into
// transport-friendly DTOs so UI clients need no knowledge of internal types.
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
package api
