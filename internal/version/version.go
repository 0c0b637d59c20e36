// Package version holds the build identifier ddarpd reports in its startup
// log line.
package version

// Build is injected via -ldflags at release build time; "dev" otherwise.
var Build = "dev"

// ProtocolVersion is the wire.Version this build speaks, surfaced so
// /node_info tells operators which codec a node runs without them needing
// to guess from the build string.
const ProtocolVersion = 1
