// Package export encodes and merges session export files.
//
// The export format is a JSON array of session records. An older object-map
// shape existed in a prior revision of the extension and is not accepted.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
)

// Marshal encodes all sessions as a JSON array, the shape importers accept.
func Marshal(sessions []domain.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []domain.Session{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an export file. Only the array shape is accepted. Each
// record is seeded with an unassigned order before decoding so legacy
// exports that predate the order field stay distinguishable from order 0
// and get renumbered on import.
func Unmarshal(data []byte) ([]domain.Session, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("export file is not a JSON session array: %w", err)
	}

	sessions := make([]domain.Session, 0, len(elems))
	for i, elem := range elems {
		sess := domain.Session{Order: store.UnassignedOrder}
		if err := json.Unmarshal(elem, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session %d in export: %w", i, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Merge applies the import policy: every existing session whose domain
// appears anywhere in the imported set is replaced by the imported sessions
// for that domain; sessions for other domains are preserved untouched.
func Merge(existing, imported []domain.Session) []domain.Session {
	importedDomains := make(map[string]struct{}, len(imported))
	for _, sess := range imported {
		importedDomains[sess.Domain] = struct{}{}
	}

	merged := make([]domain.Session, 0, len(existing)+len(imported))
	for _, sess := range existing {
		if _, replaced := importedDomains[sess.Domain]; !replaced {
			merged = append(merged, sess)
		}
	}
	merged = append(merged, imported...)
	return merged
}
