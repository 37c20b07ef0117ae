// Package app bootstraps the launch service.
//
// NewApplication loads config.yaml, validates it, configures logging and
// wires the components in dependency order:
//
//	metrics registry
//	    │
//	verifier store (memory | redis) ── session store
//	    │
//	capability resolver ── orchestrator ── token exchanger
//	    │
//	FHIR client ── HTTP handlers ── server
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests within server.shutdownTimeout and stops the
// stores' background goroutines.
//
// Tests can preset Config.SmartLaunchConfig to skip file loading and drive
// the wired server through Services().Server.Handler().
package app
