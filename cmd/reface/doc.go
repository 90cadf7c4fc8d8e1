// Command reface is the CLI front end for the refaced daemon. It drives the
// redesign pipeline over the daemon's HTTP API: starting projects, reviewing
// and editing the plan, triggering generation, and exporting the result.
package main
