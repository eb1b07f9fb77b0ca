// SPDX-License-Identifier: MPL-2.0

package paletteserver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/invowk/palette/internal/config"
)

var (
	// ErrInvalidKey is the sentinel error wrapped by InvalidKeyError.
	ErrInvalidKey = errors.New("invalid authorized key")
	// ErrDuplicateKey is the sentinel error wrapped by DuplicateKeyError.
	ErrDuplicateKey = errors.New("public key assigned to more than one identity")
)

type (
	// Keyring maps public keys to identity names.
	Keyring struct {
		owners map[string]string
	}

	// InvalidKeyError is returned when a configured key cannot be parsed.
	InvalidKeyError struct {
		Identity string
		Cause    error
	}

	// DuplicateKeyError is returned when two identities list the same key.
	DuplicateKeyError struct {
		Fingerprint string
		First       string
		Second      string
	}
)

// NewKeyring parses the authorized_keys lines of every identity. Identity
// names are lowercased to match the policy.
func NewKeyring(identities map[string]config.IdentityConfig) (*Keyring, error) {
	k := &Keyring{owners: make(map[string]string)}

	names := make([]string, 0, len(identities))
	for name := range identities {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		owner := strings.ToLower(name)
		for _, line := range identities[name].Keys {
			pub, _, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
			if err != nil {
				return nil, &InvalidKeyError{Identity: name, Cause: err}
			}
			wire := string(pub.Marshal())
			if prev, ok := k.owners[wire]; ok && prev != owner {
				return nil, &DuplicateKeyError{Fingerprint: gossh.FingerprintSHA256(pub), First: prev, Second: owner}
			}
			k.owners[wire] = owner
		}
	}
	return k, nil
}

// Lookup returns the identity that owns key. A nil key has no owner.
func (k *Keyring) Lookup(key ssh.PublicKey) (string, bool) {
	if k == nil || key == nil {
		return "", false
	}
	owner, ok := k.owners[string(key.Marshal())]
	return owner, ok
}

// Len returns the number of known keys.
func (k *Keyring) Len() int {
	if k == nil {
		return 0
	}
	return len(k.owners)
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("identity %q: %v", e.Identity, e.Cause)
}

// Unwrap returns the sentinel and the parse error.
func (e *InvalidKeyError) Unwrap() []error { return []error{ErrInvalidKey, e.Cause} }

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("key %s is listed by both %q and %q", e.Fingerprint, e.First, e.Second)
}

// Unwrap returns ErrDuplicateKey for errors.Is() compatibility.
func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
