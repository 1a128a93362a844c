// Package join merges the applicant, master and priority tables into an
// insertion-ordered multimap keyed by the shared record key. A key may carry
// several entries (one per applicant name); master scalars and priority
// claims are replicated onto all of them. An Index belongs to a single run.
package join
