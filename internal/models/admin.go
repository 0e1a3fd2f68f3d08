package models

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// Admin is the single configured operator allowed to issue invitations.
type Admin struct {
	Username     string
	PasswordHash string
}
