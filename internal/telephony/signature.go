package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"log"
	"sort"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Validator checks inbound webhook authenticity against the shared gateway
// secret. The URL it signs over is the one registered with the gateway, never
// the request's own Host/Proto headers: proxies rewrite those.
type Validator struct {
	authToken string
	// bypass skips verification with a logged warning. Construction ties it
	// to the non-production flag so it is unreachable in prod.
	bypass bool
}

func NewValidator(authToken string, prod bool) *Validator {
	bypass := authToken == "" && !prod
	if bypass {
		log.Printf("⚠️ Webhook auth token not configured in non-prod mode; signature verification DISABLED")
	}
	return &Validator{authToken: authToken, bypass: bypass}
}

// Verify recomputes the gateway signature over url plus the alphabetically
// sorted form parameters and compares in constant time. A nil return means
// the request is authentic.
func (v *Validator) Verify(url string, params map[string]string, signature string) error {
	if v.bypass {
		log.Printf("⚠️ Skipping webhook signature verification (non-prod bypass)")
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}

	if !hmac.Equal([]byte(v.expected(url, params)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// expected implements the Twilio scheme: HMAC-SHA1 of the exact callback URL
// concatenated with each form key and value in key order, base64 encoded.
func (v *Validator) expected(url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := url
	for _, k := range keys {
		data += k + params[k]
	}

	mac := hmac.New(sha1.New, []byte(v.authToken))
	_, _ = mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
