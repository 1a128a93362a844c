// Package notifications delivers batch run events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured. The
// workflow controller depends only on the Service interface.
package notifications
