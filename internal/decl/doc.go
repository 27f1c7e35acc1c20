// Package decl holds the declarative table a configuration pass resolves:
// probes, options, path variables and the artifact layout. The table is
// read from HCL files by Loader and checked by Validate before any probe
// runs.
package decl
