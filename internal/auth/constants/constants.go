package constants

const (
	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// TimestampKey is added to every user info result
	TimestampKey = "Timestamp"

	// HomePath serves the login link
	HomePath = "/"

	// LoginLinkText is the anchor text of the login link
	LoginLinkText = "Login with Google"
)

// Callback query parameters
const (
	QueryCode  = "code"
	QueryError = "error"
)
