package domain

// LoginRequest carries the credentials posted to /login. Nothing here is persisted.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
