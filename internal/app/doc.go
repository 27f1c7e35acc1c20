// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the lifecycle of one configuration run
// (load, resolve, write, report), decoupled from any specific entrypoint.
package app
