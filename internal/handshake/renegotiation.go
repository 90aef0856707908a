package handshake

import "bytes"

// renegotiationOutcome is applied by the caller: when fatal is true the
// caller must send AlertHandshakeFailure and fail the step with
// ErrBadClientHello, per spec.md §4.G "Fatal means: send a fatal
// handshake_failure alert, then return BadClientHello."
type renegotiationOutcome struct {
	fatal     bool
	nextState SecureRenegotiationState
}

// evaluateRenegotiation implements spec.md §4.G's policy table exactly,
// plus the initial-handshake renegotiation_info content check of §4.B
// that depends on the same initial/renegotiation context. prevServerVD and
// prevClientVD are this connection's own and peer's Finished verify_data
// from the handshake being renegotiated (nil on an initial handshake).
func evaluateRenegotiation(params *ConnParams, isRenegotiation bool, current SecureRenegotiationState, msg *ClientHelloMsg, prevServerVD, prevClientVD []byte) renegotiationOutcome {
	if !isRenegotiation {
		if msg.Legacy {
			if msg.SawEmptyRenegSCSV {
				return renegotiationOutcome{nextState: RenegotiationSecure}
			}
			return renegotiationOutcome{nextState: RenegotiationNotSupported}
		}
		if msg.SawRenegotiationInfo {
			// RenegotiationInfo excludes the 1-byte length, so the valid
			// initial-handshake body (a single zero byte) parses to an
			// empty slice.
			if len(msg.RenegotiationInfo) != 0 {
				return renegotiationOutcome{fatal: true}
			}
			return renegotiationOutcome{nextState: RenegotiationSecure}
		}
		if msg.SawEmptyRenegSCSV {
			return renegotiationOutcome{nextState: RenegotiationSecure}
		}
		return renegotiationOutcome{nextState: RenegotiationNotSupported}
	}

	// Renegotiation: SCSV during a renegotiation is always fatal,
	// spec.md §4.C step 6.
	if msg.SawEmptyRenegSCSV {
		return renegotiationOutcome{fatal: true}
	}

	switch current {
	case RenegotiationLegacy:
		if params.RenegotiationPolicy == PolicyBreakHandshake {
			return renegotiationOutcome{fatal: true}
		}
		if params.RenegotiationPolicy == PolicyNoRenegotiation {
			return renegotiationOutcome{fatal: true}
		}
		if msg.SawRenegotiationInfo {
			// Illegal combination: a legacy connection suddenly claims
			// secure renegotiation support.
			return renegotiationOutcome{fatal: true}
		}
		return renegotiationOutcome{nextState: RenegotiationLegacy}

	case RenegotiationSecure:
		if !msg.SawRenegotiationInfo {
			// Secure downgrade attempt.
			return renegotiationOutcome{fatal: true}
		}
		// spec.md §4.B: the client's renegotiation_info body must equal
		// client_verify_data alone; the server-side concatenation with
		// server_verify_data is what the server's own extension emits
		// (spec.md §4.D), not what it expects back from the client.
		if len(msg.RenegotiationInfo) != len(prevClientVD) || !bytes.Equal(msg.RenegotiationInfo, prevClientVD) {
			return renegotiationOutcome{fatal: true}
		}
		return renegotiationOutcome{nextState: RenegotiationSecure}

	default: // RenegotiationNotSupported: no prior secure/legacy signal at all.
		if msg.SawRenegotiationInfo {
			return renegotiationOutcome{fatal: true}
		}
		return renegotiationOutcome{nextState: RenegotiationNotSupported}
	}
}
