package handshake

// selectCipherSuite implements spec.md §4.C step 9: server-preference
// ciphersuite selection. For the legacy SSLv2-compatible shape the caller
// passes ecAvailable=false (no extensions exist to negotiate a curve, so
// no EC suite can ever be selected, spec.md §4.C "Legacy" paragraph).
func selectCipherSuite(prefs CipherSuitePreferences, negotiatedMinor byte, clientList []uint16, ecAvailable bool, pskConfigured bool, dhConfigured bool) (*CipherSuite, bool) {
	serverOrder := prefs[negotiatedMinor]
	for _, id := range serverOrder {
		suite := lookupCipherSuite(id)
		if suite == nil {
			continue
		}
		if negotiatedMinor < suite.MinMinor || negotiatedMinor > suite.MaxMinor {
			continue
		}
		if suite.KeyExchange == KeyExchangeECDHERSA && !ecAvailable {
			continue
		}
		if (suite.KeyExchange == KeyExchangePSK || suite.KeyExchange == KeyExchangeDHEPSK) && !pskConfigured {
			continue
		}
		if (suite.KeyExchange == KeyExchangeDHERSA || suite.KeyExchange == KeyExchangeDHEPSK) && !dhConfigured {
			continue
		}
		if !containsSuite(clientList, id) {
			continue
		}
		return suite, true
	}
	return nil, false
}

func containsSuite(list []uint16, id uint16) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
