// Package telemetry decodes the messages pushed by a GPU telemetry server.
//
// A server runs in one of two modes. A single node sends a flat message
// with its GPUs keyed by local id; a hub aggregates several nodes and sends
// a nested message with per-node status. Decode accepts both and exposes
// them uniformly as a list of EntityUpdate values keyed by a stable entity
// key, plus at most one SystemUpdate carrying process and host metrics.
package telemetry
