// Package api provides the HTTP REST API and WebSocket server for FleetSim.
//
// It exposes the device fleet over /api/v1: creating and removing devices,
// bounded sensor reads, switch commands, and a WebSocket endpoint streaming
// live device updates on the "sensors" and "switches" channels.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
