package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header the processor signs notifications with.
const SignatureHeader = "Paddle-Signature"

// Verify reports whether signatureHeader carries a valid HMAC-SHA256 of
// "{ts}:{rawBody}" under secret. It does not look at the timestamp's age.
func Verify(rawBody []byte, signatureHeader, secret string) bool {
	ts, macs, ok := parseSignatureHeader(signatureHeader)
	if !ok || secret == "" {
		return false
	}
	return validMAC(rawBody, ts, macs, secret)
}

// Verifier adds a replay window on top of Verify. A zero Tolerance disables the
// window.
type Verifier struct {
	Secret    string
	Tolerance time.Duration

	now func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{Secret: secret, Tolerance: tolerance, now: time.Now}
}

func (v *Verifier) Verify(rawBody []byte, signatureHeader string) bool {
	ts, macs, ok := parseSignatureHeader(signatureHeader)
	if !ok || v.Secret == "" {
		return false
	}

	if v.Tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		age := v.now().Sub(time.Unix(unix, 0))
		if age < 0 {
			age = -age
		}
		if age > v.Tolerance {
			return false
		}
	}

	return validMAC(rawBody, ts, macs, v.Secret)
}

// Sign builds a header value for body at ts. Used by tests and local tooling
// that replays captured notifications.
func Sign(rawBody []byte, ts time.Time, secret string) string {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	return "ts=" + stamp + ";h1=" + hex.EncodeToString(computeMAC(rawBody, stamp, secret))
}

// parseSignatureHeader returns the timestamp and every h1 value. The processor
// sends more than one h1 while a secret is being rotated.
func parseSignatureHeader(header string) (ts string, macs []string, ok bool) {
	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "ts":
			ts = value
		case "h1":
			if value != "" {
				macs = append(macs, value)
			}
		}
	}
	return ts, macs, ts != "" && len(macs) > 0
}

func validMAC(rawBody []byte, ts string, macs []string, secret string) bool {
	want := computeMAC(rawBody, ts, secret)
	for _, h1 := range macs {
		got, err := hex.DecodeString(h1)
		if err != nil {
			continue
		}
		if hmac.Equal(got, want) {
			return true
		}
	}
	return false
}

func computeMAC(rawBody []byte, ts, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(rawBody)
	return mac.Sum(nil)
}
