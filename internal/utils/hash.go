package utils

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"regexp"
)

var ticketCodeRe = regexp.MustCompile(`#(R\d+)`)

// TicketCode derives the human-facing ticket code from an internal record
// key: sha256 of the key reduced modulo 1e6, rendered as R000000. The
// reduction is collision-blind: two distinct keys can share a code, and
// callers that resolve codes back to records must scope the scan (e.g. to a
// single requester) and tolerate ambiguity.
func TicketCode(id string) string {
	sum := sha256.Sum256([]byte(id))
	n := new(big.Int).SetBytes(sum[:])
	return fmt.Sprintf("R%06d", n.Mod(n, big.NewInt(1000000)).Int64())
}

// ExtractTicketCode pulls the first #R-prefixed code out of a message text,
// or returns "" when none is present.
func ExtractTicketCode(text string) string {
	m := ticketCodeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
