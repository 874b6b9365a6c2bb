/*
Package randx provides functions for generating unique identifiers and random
display names.

User IDs are process-generated UUIDs: never persisted across restarts and
never reused within a server process lifetime.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for random name suffixes.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// guestSuffixLength is the number of random characters in a generated name.
	guestSuffixLength = 6
)

// UserID generates a UUID v4 string identifying one connected user.
func UserID() string {
	return uuid.New().String()
}

// GuestName generates a random display name with a "User_" prefix and six
// random Base62 characters, for clients that join without choosing a name.
func GuestName() (string, error) {
	base := big.NewInt(int64(len(Base62Chars)))
	result := make([]byte, guestSuffixLength)

	for i := range guestSuffixLength {
		num, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for guest name: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return "User_" + string(result), nil
}
