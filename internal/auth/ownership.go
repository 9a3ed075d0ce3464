package auth

// Decision is the outcome of the ownership gate.
type Decision int

const (
	// Allow permits the operation.
	Allow Decision = iota
	// DenyUnauthenticated rejects an anonymous requester (401).
	DenyUnauthenticated
	// DenyNotOwner rejects an authenticated requester that does not own the
	// resource (405, the status this API has always answered with).
	DenyNotOwner
)

// Decide is the single ownership gate used by the account, vehicle, and
// image mutation paths. Reads on public resources pass isRead=true and are
// always allowed; everything else requires an authenticated requester whose
// ID matches the resource owner.
func Decide(requester *Identity, resourceOwnerID string, isRead bool) Decision {
	if isRead {
		return Allow
	}
	if requester == nil {
		return DenyUnauthenticated
	}
	if requester.ID != resourceOwnerID {
		return DenyNotOwner
	}
	return Allow
}
