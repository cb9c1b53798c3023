package store

import "github.com/AnotherRiz/BitX-Sessions/internal/domain"

// UnassignedOrder marks a session loaded from a legacy record that predates
// the order field. The redis repository seeds decoded records with this
// value so absent fields are distinguishable from order 0.
const UnassignedOrder = -1

// MigrateOrders assigns a stable order to any session lacking one, keeping
// existing orders untouched and appending legacy sessions after the current
// per-domain maximum in their original insertion sequence. Returns true if
// any record changed.
func MigrateOrders(sessions []domain.Session) bool {
	maxOrder := make(map[string]int)
	for _, sess := range sessions {
		if sess.Order == UnassignedOrder {
			continue
		}
		if cur, ok := maxOrder[sess.Domain]; !ok || sess.Order > cur {
			maxOrder[sess.Domain] = sess.Order
		}
	}

	changed := false
	for i := range sessions {
		if sessions[i].Order != UnassignedOrder {
			continue
		}
		next := 0
		if cur, ok := maxOrder[sessions[i].Domain]; ok {
			next = cur + 1
		}
		sessions[i].Order = next
		maxOrder[sessions[i].Domain] = next
		changed = true
	}
	return changed
}
