// Package mcp maintains client connections to Model Context Protocol servers
// and exposes them to the tool layer through the core.ResourceClient
// contract. Each Manager owns its own connection table; nothing is shared
// process-wide, so independent engines can talk to disjoint server sets.
package mcp
