package loyalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEAN13(t *testing.T) {
	cases := []struct {
		name string
		code string
		want bool
	}{
		{"valid retail code", "4006381333931", true},
		{"valid all-zero payload", "0000000000000", true},
		{"wrong check digit", "4006381333930", false},
		{"too short", "400638133393", false},
		{"too long", "40063813339311", false},
		{"letter in payload", "40063813339a1", false},
		{"letter as check digit", "400638133393x", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidEAN13(tc.code))
		})
	}
}
