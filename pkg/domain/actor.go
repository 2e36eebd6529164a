package domain

// Actor is the authenticated caller of the disclosure pipeline. It is
// resolved by the authentication layer before domain logic runs and is
// immutable for the lifetime of a request.
type Actor struct {
	ID         string
	Role       Role
	Department string
}
