package security

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// MinPasswordScore is the lowest zxcvbn score accepted at registration.
const MinPasswordScore = 3

// PasswordStrength scores a candidate password from 0 (trivially guessable)
// to 4. Known user values like the email and nickname are passed as user
// inputs so they count against the password instead of for it.
func PasswordStrength(password string, userInputs ...string) int {
	if password == "" {
		return 0
	}
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
