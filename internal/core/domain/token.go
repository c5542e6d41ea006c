package domain

// TokenPair bundles the credentials handed to a client after authentication.
// ExpiresIn counts seconds until the access token expires.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
