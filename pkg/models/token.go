package models

import "time"

// TokenFingerprintLen is how many leading characters of an issued token are
// persisted. The full token is only ever shown once.
const TokenFingerprintLen = 12

type Token struct {
	ID         int64      `json:"id" db:"id"`
	UserID     string     `json:"-" db:"user_id"`
	Token      string     `json:"token" db:"token"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	LastUsedAt *time.Time `json:"lastUsedAt" db:"last_used_at"`
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool `json:"success"`
}

type Infos struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
