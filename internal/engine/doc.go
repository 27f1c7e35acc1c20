// Package engine runs one configuration pass: it validates the declaration
// table, resolves options (running probes on demand) and paths, aggregates
// the record and renders the artifacts. A pass either produces all of its
// results or a single fatal error.
package engine
