package wallet

import "regexp"

// The network's two historical encodings: legacy/script-hash prefixed
// forms (L/M) and the native segwit human-readable prefix (ltc1), each
// with a bounded alphanumeric body.
var addressPattern = regexp.MustCompile(`^(ltc1|[LM])[a-zA-Z0-9]{26,42}$`)

func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}
