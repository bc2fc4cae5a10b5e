// Package testutil contains fluent builders for agent configurations and
// workflow definitions used across tests.
package testutil
