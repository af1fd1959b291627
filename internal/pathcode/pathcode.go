// Package pathcode decodes the position identifiers QIS uses to address
// catalog nodes: percent-encoded, pipe-delimited segment lists. The prefix
// relation between decoded identifiers is the only hierarchy information the
// remote system exposes.
package pathcode

import (
	"net/url"
	"strings"
)

const delimiter = "|"

// Decode percent-decodes an identifier and splits it into its segments.
// An identifier that fails to decode is treated as a single opaque segment.
func Decode(id string) []string {
	decoded, err := url.QueryUnescape(id)
	if err != nil {
		decoded = id
	}
	return strings.Split(decoded, delimiter)
}

// Depth returns the number of segments in the identifier.
func Depth(id string) int {
	return len(Decode(id))
}

// IsChild reports whether candidate is an immediate child of parent: exactly
// one segment deeper and sharing the parent's decoded string as a prefix.
func IsChild(parentID, candidateID string) bool {
	parentDecoded, err := url.QueryUnescape(parentID)
	if err != nil {
		parentDecoded = parentID
	}
	candidateDecoded, err := url.QueryUnescape(candidateID)
	if err != nil {
		candidateDecoded = candidateID
	}

	parentDepth := len(strings.Split(parentDecoded, delimiter))
	candidateDepth := len(strings.Split(candidateDecoded, delimiter))

	return candidateDepth == parentDepth+1 && strings.HasPrefix(candidateDecoded, parentDecoded)
}
