package domain

import "time"

// User is owned by the identity collaborator. This core reads it to resolve
// reward and relay destinations; the reputation counter itself lives on the
// secondary ledger and Reputation is only the locally cached value used as a
// scoring input.
type User struct {
	ID               string    `json:"id"`
	PrimaryAddress   string    `json:"primaryAddress,omitempty"`
	SecondaryAddress string    `json:"secondaryAddress,omitempty"`
	Reputation       int64     `json:"reputation"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
