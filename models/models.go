package models

// AccountRecord is one entry of the account directory. Both hashes are
// lowercase hex SHA-256 of the raw value with the salt appended.
type AccountRecord struct {
	UsernameHash string `json:"usernameHash"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
}

// Session is the authenticated state kept in client-side storage.
type Session struct {
	LoggedIn bool   `json:"loggedIn"`
	UserHash string `json:"userHash"`
	Role     string `json:"role"`
}

// User is what the rest of the site sees of the current session.
type User struct {
	UsernameHash string `json:"usernameHash"`
	Role         string `json:"role"`
}

const RoleAdmin = "admin"
