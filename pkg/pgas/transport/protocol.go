package transport

import "github.com/hashicorp/go-version"

// WireProtocolVersion is stamped on every request ReltTransport sends.
// Generalizes the teacher's RPCHeader.ProtocolVersion integer check
// (checkRPCHeader) into a real semantic-version compatibility gate.
const WireProtocolVersion = "1.0.0"

// minSupportedProtocolVersion is the oldest wire version this build
// will still service a request from.
const minSupportedProtocolVersion = "1.0.0"

// compatibleProtocol reports whether remote (an envelope's stamped
// version) is acceptable. An empty string passes: LoopTransport never
// stamps one, since it never crosses a real wire boundary.
func compatibleProtocol(remote string) bool {
	if remote == "" {
		return true
	}
	rv, err := version.NewVersion(remote)
	if err != nil {
		return false
	}
	min, err := version.NewVersion(minSupportedProtocolVersion)
	if err != nil {
		return false
	}
	return rv.Compare(min) >= 0
}
