package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmas28/business-connect-v2/internal/password"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     error
	}{
		{"accepts mixed classes", "Abcdef1", nil},
		{"accepts digits mixed in", "abcdef1", nil},
		{"accepts symbols mixed in", "abc-def", nil},
		{"rejects short", "Abc1", password.ErrTooShort},
		{"rejects exactly six", "Abcde1", password.ErrTooShort},
		{"rejects letters only", "Abcdefg", password.ErrAllLetters},
		{"rejects digits only", "1234567", password.ErrAllDigits},
		{"rejects all lowercase letters", "abcdefg", password.ErrAllLetters},
		{"rejects lowercase with spaces", "abc defg", password.ErrAllLowercase},
		{"rejects whitespace only", "        ", password.ErrOnlyWhitespace},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := password.Validate(tc.password)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}
