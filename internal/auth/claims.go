package auth

import "github.com/golang-jwt/jwt/v4"

// poolUsername returns the user pool's name for the user carried in an
// id token, or "" when the token cannot be read. The signature is not
// checked: the token came straight from the provider and the name is
// only used to compute SECRET_HASH.
func poolUsername(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	if name, ok := claims["cognito:username"].(string); ok && name != "" {
		return name
	}
	sub, _ := claims["sub"].(string)
	return sub
}
