// Package api defines the public types shared between the flume engine and
// its callers: the Operation and Plugin contracts, input locators, execution
// plans and diagnostics, the error taxonomy, the Observer instrumentation
// hooks, and the portable specification format used for persistence.
//
// Application code usually imports the root flume package, which re-exports
// everything here; internal engine packages import api directly.
package api
