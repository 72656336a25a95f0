package models

import "github.com/golang-jwt/jwt/v4"

// Claims is the session payload. Session is the upstream cookie string the
// calendar site handed out at login.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"userID"`
	Session string `json:"session"`
}
