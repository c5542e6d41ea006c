package security

import (
	"crypto/rand"
	"fmt"
)

const verificationTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// VerificationTokenLength is the length of email verification and password
// reset tokens.
const VerificationTokenLength = 32

// GenerateVerificationToken returns a random alphanumeric token used for
// email verification and password reset links.
func GenerateVerificationToken() (string, error) {
	return generateAlphanumeric(VerificationTokenLength)
}

func generateAlphanumeric(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = verificationTokenAlphabet[int(b)%len(verificationTokenAlphabet)]
	}

	return string(out), nil
}

// GenerateNumericCode returns a random numeric string of the given length,
// used for SMS verification codes.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	digits := make([]byte, length)
	for i, b := range buf {
		digits[i] = '0' + (b % 10)
	}

	return string(digits), nil
}
