package models

import "time"

// Session holds the tokens issued by the identity provider for the
// signed-in user.
type Session struct {
	Username     string    `json:"username"`
	// PoolUsername is the name the user pool knows the user by. It differs
	// from Username when the user signs in with an alias such as an email.
	PoolUsername string    `json:"poolUsername,omitempty"`
	IDToken      string    `json:"idToken"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the id token is no longer usable at now.
// A small skew keeps us from sending a token that dies in flight.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || !now.Add(30*time.Second).Before(s.ExpiresAt)
}

// Empty reports whether there is no session at all.
func (s Session) Empty() bool {
	return s.IDToken == "" && s.RefreshToken == ""
}

// UserAttribute is a single name/value attribute of the signed-in user.
type UserAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attribute returns the value of the named attribute, or "".
func Attribute(attrs []UserAttribute, name string) string {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}
