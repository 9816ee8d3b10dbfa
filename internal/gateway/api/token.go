package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sebas/dialdesk/internal/backend"
)

// mintToken builds a signed access token granting voice access for one
// identity. The grant names the voice application for outgoing calls and
// allows incoming ones; it is signed with the account's auth secret.
func mintToken(creds backend.Credentials, appSID string, ttl time.Duration, now time.Time) (token, identity string, err error) {
	identity = fmt.Sprintf("user_%d", now.UnixMilli())

	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	payload := map[string]any{
		"jti": uuid.NewString(),
		"iss": creds.AccountSID,
		"sub": creds.AccountSID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"grants": map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"outgoing": map[string]any{
					"application_sid": appSID,
				},
				"incoming": map[string]any{
					"allow": true,
				},
			},
		},
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", "", err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(headerJSON) + "." + enc.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, []byte(creds.AuthToken))
	mac.Write([]byte(signingInput))
	signature := enc.EncodeToString(mac.Sum(nil))

	return signingInput + "." + signature, identity, nil
}
