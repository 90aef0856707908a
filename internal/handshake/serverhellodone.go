package handshake

// buildServerHelloDone implements spec.md §4.D "ServerHelloDone": an empty
// handshake body.
func buildServerHelloDone() []byte {
	return []byte{MsgServerHelloDone, 0, 0, 0}
}
