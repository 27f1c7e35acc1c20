// Package probe executes capability checks against the host toolchain.
//
// A Runner is the only component of a configuration pass allowed to start
// external processes. It delegates the actual work to a Toolchain
// (CCToolchain for the real compiler, StaticToolchain for recorded facts),
// bounds every check with a timeout, and caches outcomes by probe identity
// so that a capability is checked at most once per pass.
package probe
