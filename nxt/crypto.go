package nxt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"

	"nxt-tipbot/errors"
)

// GeneratePassphrase returns a fresh 256-bit secret encoded as hex. Used
// for the master-secret startup guidance; custodial account passphrases
// are derived deterministically, see DerivePassphrase.
func GeneratePassphrase() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("passphrase generation: %w", err)
	}
	return hex.EncodeToString(raw[:]), nil
}

// DerivePassphrase derives a per-user account passphrase from the master
// secret. The derivation is an HMAC so a lost store entry can be rebuilt
// from the master secret and the user id alone.
func DerivePassphrase(masterSecret, userID string) string {
	mac := hmac.New(sha256.New, []byte(masterSecret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// PublicKey derives the curve25519 public key for a passphrase the way the
// ledger does: the scalar is the SHA-256 of the passphrase, clamped.
func PublicKey(passphrase string) ([]byte, error) {
	scalar := sha256.Sum256([]byte(passphrase))
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	pub, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("public key derivation: %w", err)
	}
	return pub, nil
}

// AccountID computes the numeric ledger account id of a public key: the
// first eight bytes of its SHA-256, little-endian.
func AccountID(publicKey []byte) uint64 {
	digest := sha256.Sum256(publicKey)
	return binary.LittleEndian.Uint64(digest[:8])
}

// Address derives the Reed-Solomon address for a passphrase.
func Address(passphrase string) (string, error) {
	pub, err := PublicKey(passphrase)
	if err != nil {
		return "", err
	}
	return EncodeAddress(AccountID(pub)), nil
}

// DeriveAccount derives the full custodial key material for a passphrase:
// the hex public key and the Reed-Solomon address.
func DeriveAccount(passphrase string) (publicKeyHex, address string, err error) {
	pub, err := PublicKey(passphrase)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(pub), EncodeAddress(AccountID(pub)), nil
}

// Reed-Solomon address codec over GF(32), producing the familiar
// NXT-XXXX-XXXX-XXXX-XXXXX form with four check symbols.

const (
	addressPrefix  = "NXT-"
	rsAlphabet     = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	base32Length   = 13
	base10Length   = 20
	codewordLength = 17
)

var (
	rsGexp = [32]int{1, 2, 4, 8, 16, 5, 10, 20, 13, 26, 17, 7, 14, 28, 29, 31, 27, 19, 3, 6, 12, 24, 21, 15, 30, 25, 23, 11, 22, 9, 18, 1}
	rsGlog = [32]int{0, 0, 1, 18, 2, 5, 19, 11, 3, 29, 6, 27, 20, 8, 12, 23, 4, 10, 30, 17, 7, 22, 28, 26, 21, 25, 9, 16, 13, 14, 24, 15}
	// Position of each output symbol within the codeword.
	rsCodewordMap = [codewordLength]int{3, 2, 1, 0, 7, 6, 5, 4, 13, 14, 15, 16, 12, 8, 9, 10, 11}
)

func gmult(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return rsGexp[(rsGlog[a]+rsGlog[b])%31]
}

// EncodeAddress renders a numeric account id as a Reed-Solomon address.
func EncodeAddress(accountID uint64) string {
	plain := fmt.Sprintf("%d", accountID)
	var digits [base10Length]int
	length := len(plain)
	for i := 0; i < length; i++ {
		digits[i] = int(plain[i] - '0')
	}

	var codeword [codewordLength]int
	codewordIndex := 0
	for {
		newLength := 0
		digit32 := 0
		for i := 0; i < length; i++ {
			digit32 = digit32*10 + digits[i]
			if digit32 >= 32 {
				digits[newLength] = digit32 >> 5
				digit32 &= 31
				newLength++
			} else if newLength > 0 {
				digits[newLength] = 0
				newLength++
			}
		}
		length = newLength
		codeword[codewordIndex] = digit32
		codewordIndex++
		if length == 0 {
			break
		}
	}

	p := [4]int{}
	for i := base32Length - 1; i >= 0; i-- {
		fb := codeword[i] ^ p[3]
		p[3] = p[2] ^ gmult(30, fb)
		p[2] = p[1] ^ gmult(6, fb)
		p[1] = p[0] ^ gmult(9, fb)
		p[0] = gmult(17, fb)
	}
	copy(codeword[base32Length:], p[:])

	var sb strings.Builder
	sb.WriteString(addressPrefix)
	for i := 0; i < codewordLength; i++ {
		sb.WriteByte(rsAlphabet[codeword[rsCodewordMap[i]]])
		if i&3 == 3 && i < base32Length {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// DecodeAddress parses and checksums a Reed-Solomon address, returning the
// numeric account id. Lowercase input and a missing prefix are tolerated.
func DecodeAddress(address string) (uint64, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(address))
	cleaned = strings.TrimPrefix(cleaned, addressPrefix)
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if len(cleaned) != codewordLength {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidAddress, address)
	}

	var codeword [codewordLength]int
	for i := 0; i < codewordLength; i++ {
		position := strings.IndexByte(rsAlphabet, cleaned[i])
		if position < 0 {
			return 0, fmt.Errorf("%w: %q", errors.ErrInvalidAddress, address)
		}
		codeword[rsCodewordMap[i]] = position
	}
	if !codewordValid(codeword) {
		return 0, fmt.Errorf("%w: %q fails checksum", errors.ErrInvalidAddress, address)
	}

	// Base 32 -> base 10, most significant codeword symbol last.
	var out uint64
	for i := base32Length - 1; i >= 0; i-- {
		out = out<<5 | uint64(codeword[i])
	}
	return out, nil
}

// ValidAddress reports whether the address parses and checksums.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

func codewordValid(codeword [codewordLength]int) bool {
	sum := 0
	for i := 1; i < 5; i++ {
		t := 0
		for j := 0; j < 31; j++ {
			if j > 12 && j < 27 {
				continue
			}
			position := j
			if j > 26 {
				position -= 14
			}
			t ^= gmult(codeword[position], rsGexp[(i*j)%31])
		}
		sum |= t
	}
	return sum == 0
}
