package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ipfs/go-cid"
)

const maxActorIDLength = 2048

var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

// ActorID is a DID naming the owner of a blob
type ActorID string

// ParseActorID validates DID syntax
func ParseActorID(s string) (ActorID, error) {
	if len(s) > maxActorIDLength {
		return "", fmt.Errorf("actor identifier too long (%d bytes)", len(s))
	}
	if !didPattern.MatchString(s) {
		return "", fmt.Errorf("invalid actor identifier %q", s)
	}
	return ActorID(s), nil
}

// Method returns the DID method, e.g. "plc" for did:plc:abc
func (a ActorID) Method() string {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// MethodSpecificID returns everything after did:<method>:
func (a ActorID) MethodSpecificID() string {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func (a ActorID) String() string {
	return string(a)
}

// ContentID is a CID in canonical string form
type ContentID struct {
	cid cid.Cid
}

// ParseContentID decodes a CID and requires that s is already its canonical
// encoding, so the string round-trips byte-identically.
func ParseContentID(s string) (ContentID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content identifier %q: %w", s, err)
	}
	if c.String() != s {
		return ContentID{}, fmt.Errorf("content identifier %q is not canonical (expected %s)", s, c.String())
	}
	return ContentID{cid: c}, nil
}

// CID returns the decoded identifier
func (c ContentID) CID() cid.Cid {
	return c.cid
}

func (c ContentID) String() string {
	if !c.cid.Defined() {
		return ""
	}
	return c.cid.String()
}
