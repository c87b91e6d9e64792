package models

// TokenPayload is payload of verified authorization token
type TokenPayload struct {
	UserID uint64
}
