package pipeline

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
)

// IntegrityHash derives the digest stored in every record's %hash% column:
// the first 11 hex chars of fnv64a over canonical payload JSON, the record
// id, and the modification stamp. The backing platform checks it for
// staleness, not authenticity, so a non-cryptographic hash is fine.
func IntegrityHash(payload any, id string, modifiedOn int64) (string, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(canonical)
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte(strconv.FormatInt(modifiedOn, 10)))
	digest := fmt.Sprintf("%016x", h.Sum64())
	return digest[:11], nil
}

// canonicalJSON round-trips the payload through a generic value so object
// keys come out sorted regardless of struct field order.
func canonicalJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

var trailingNumber = regexp.MustCompile(`(\d+)$`)

// NextSequence computes the next issue sequence for a project: one past
// the highest trailing integer among the sibling identifiers, starting at
// 1. This is a read-then-compute window; it is only consistent while no
// concurrent creator runs against the same project.
func NextSequence(identifiers []string) int64 {
	var max int64
	for _, identifier := range identifiers {
		m := trailingNumber.FindString(identifier)
		if m == "" {
			continue
		}
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// Rank builds the sortable string key for manual ordering.
func Rank(sequence int64) string {
	return fmt.Sprintf("0|i%06x:", sequence)
}
