package account

import "time"

// Account represents a registered gateway tenant. Each account owns at most
// one messaging session keyed by its ID.
type Account struct {
	ID         string
	Email      string
	SecretHash []byte
	CreatedAt  time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}
