package utils

import (
	"crypto/rand"
	"fmt"
)

// CodeCharset is the alphabet used for invoice references: digits and
// uppercase letters, matching what printed receipts and the pay page expect.
const CodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode returns a random string of length n drawn from charset.
// Bytes at or above the largest multiple of len(charset) are rejected so
// every symbol is equally likely.
func GenerateCode(n int, charset string) (string, error) {
	if n <= 0 || len(charset) == 0 || len(charset) > 256 {
		return "", fmt.Errorf("generate code: invalid length %d or charset size %d", n, len(charset))
	}

	limit := 256 - (256 % len(charset))
	code := make([]byte, 0, n)
	buf := make([]byte, n)

	for len(code) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, charset[int(b)%len(charset)])
			if len(code) == n {
				break
			}
		}
	}

	return string(code), nil
}
