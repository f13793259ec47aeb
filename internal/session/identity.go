package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the auth flow hands us: a bearer token plus the email
// claim of the id token, or nothing at all for guests. Token issuance
// and verification happen elsewhere; the email here is trusted exactly
// as far as the server trusts the bearer token it accompanies.
type Identity struct {
	Email string
	Token string
}

func (i Identity) IsGuest() bool { return i.Email == "" }

// IdentityFromTokens extracts the email claim from the id token without
// verifying the signature. An unparsable or absent id token degrades to
// guest access.
func IdentityFromTokens(accessToken, idToken string) Identity {
	id := Identity{Token: accessToken}
	if idToken == "" {
		return id
	}
	token, _, err := jwt.NewParser().ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		return id
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return id
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	return id
}
