package claimlink

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// GeneratePassword produces the random claim secret for one link-creation
// attempt. The secret is never reused across attempts and is discarded after
// the link is resolved, except where it is embedded in the link itself.
func GeneratePassword() (string, error) {
	buf := make([]byte, PasswordByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", WrapFlowError(ErrCodeRandomnessUnavailable, "secure random source unavailable", err)
	}
	return hex.EncodeToString(buf), nil
}

// ClaimAddressFromPassword derives the claim keypair's public address from
// the password. The private key is keccak256 of the secret, so the claiming
// counterpart can reproduce the same keypair from the link alone.
func ClaimAddressFromPassword(password string) (string, error) {
	digest := crypto.Keccak256([]byte(password))
	key, err := crypto.ToECDSA(digest)
	if err != nil {
		return "", fmt.Errorf("derive claim key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
