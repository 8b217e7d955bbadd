// Package integrity checks fetched bytes against the CID they were requested by.
package integrity

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	// blake3 is not in the go-multihash core set
	_ "github.com/multiformats/go-multihash/register/blake3"
)

var (
	ErrMismatch   = errors.New("integrity: content does not match cid")
	ErrInvalidCID = errors.New("integrity: invalid cid")
)

// Verifier recomputes a CID from raw bytes and compares it to the requested one.
// It holds no state and is safe for concurrent use.
type Verifier struct{}

// NewVerifier creates a verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify succeeds iff data hashes, under the hash function and codec declared
// by expected, to a CID whose canonical string equals expected's.
func (v *Verifier) Verify(expected string, data []byte) error {
	want, err := cid.Decode(expected)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}

	got, err := Recompute(want.Prefix(), data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}

	if got.String() != want.String() || got.String() != expected {
		return fmt.Errorf("%w: expected %s, computed %s", ErrMismatch, expected, got.String())
	}

	return nil
}

// Recompute derives a CID for data using the version, codec and multihash of prefix.
func Recompute(prefix cid.Prefix, data []byte) (cid.Cid, error) {
	if _, err := multihash.GetHasher(prefix.MhType); err != nil {
		return cid.Undef, fmt.Errorf("unsupported hash function 0x%x: %w", prefix.MhType, err)
	}
	return prefix.Sum(data)
}
