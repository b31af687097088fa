package session

// User is the signed-in account as returned by the auth API
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Credentials are used to log in
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a new account
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResult is returned by login and registration
type AuthResult struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
