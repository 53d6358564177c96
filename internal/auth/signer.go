package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SecretHash creates the SECRET_HASH value the identity provider requires
// for app clients that were created with a client secret.
func SecretHash(username, clientID, clientSecret string) string {
	// Payload is username followed by the client id, keyed by the secret.
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
