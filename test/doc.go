// Package test provides end-to-end testing of the fault injection harness.
//
// Testing uses the native go testing framework.  Each test starts its own
// simulated package API and Docker daemon (see util.MustStartSimulator), so
// tests may break packages without affecting one another.  The daemon
// requires TLS client certificates generated once in TestMain.
//
// The harness has no dependencies against a live Triton datacenter when
// tested.  Configuration is loaded from the environment exactly as it would
// be against a real deployment.
//
// Tests are organized into domain specific files as follows:
//
// harness_test - The volume provision failure scenario and its restore
//                guarantees.
// cli_test     - The scenario run through a real docker client, if found.
package test
