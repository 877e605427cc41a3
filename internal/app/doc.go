// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the load, compute, aggregate and export
// lifecycle of a manifest run, decoupled from any specific entrypoint like a
// CLI.
package app
