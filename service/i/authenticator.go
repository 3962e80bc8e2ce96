package i

// Authenticator checks and creates login credentials.
type Authenticator interface {
	// Authenticate reports whether the name exists and the password matches.
	Authenticate(name, password string) bool

	// Register creates an account, returning false when the name is taken.
	Register(name, password string) bool
}
