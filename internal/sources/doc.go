// Package sources reads the applicant, master and priority tables exported
// from the patent database. Each table is an XML document whose root holds
// repeated row elements with one child element per column.
package sources
