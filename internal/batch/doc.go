// Package batch holds the finite results of a generate call and projects
// them into tables for sinks.
package batch
