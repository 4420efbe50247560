package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"LVg2kJoFNg45Nbpy53h7Fe1wKyeXVRhMH9",
		"MJRSgZ3UUFcTBTBAaN38XAXvZLwRe8WVw7",
		"ltc1qg42tkwuuxefutjjkzsga9gzsf7756vdr8tjsrw",
	}
	for _, address := range valid {
		assert.True(t, IsValidAddress(address), address)
	}

	invalid := []string{
		"",
		"bc1qg42tkwuuxefutjjkzsga9gzsf7756vdr8tjsrw",   // wrong network prefix
		"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2",           // bitcoin legacy
		"LVg2kJoFNg45",                                 // body too short
		"ltc1" + strings.Repeat("q", 43),               // body too long
		"LVg2kJoFNg45Nbpy53h7Fe1wKyeXVR_M",             // invalid character
		"xltc1qg42tkwuuxefutjjkzsga9gzsf7756vdr8tjsrw", // leading junk
	}
	for _, address := range invalid {
		assert.False(t, IsValidAddress(address), address)
	}
}
