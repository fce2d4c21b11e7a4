package handshake

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// plainPayload builds the base64 body of an AUTHENTICATE PLAIN
// exchange: "authzid\0authcid\0password", per RFC 4616.
func plainPayload(authzid, authcid, password string) string {
	raw := authzid + "\x00" + authcid + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// scramClient carries the state a SCRAM-SHA-256 exchange needs
// between its client-first and client-final messages, following
// RFC 5802.
type scramClient struct {
	user     string
	password string

	started     bool
	finalSent   bool
	clientNonce string
	clientFirstBare string
	serverFirst string
	authMessage string
	saltedPassword []byte
}

func newScramClient(user, password string) *scramClient {
	return &scramClient{user: user, password: password, clientNonce: randomNonce()}
}

func randomNonce() string {
	buf := make([]byte, 18)
	_, _ = rand.Read(buf)
	return base64.RawStdEncoding.EncodeToString(buf)
}

// clientFirst renders "n,,n=user,r=nonce" base64-encoded, the message
// an AUTHENTICATE SCRAM-SHA-256 exchange sends first.
func (c *scramClient) clientFirst() string {
	c.started = true
	c.clientFirstBare = fmt.Sprintf("n=%s,r=%s", scramEscape(c.user), c.clientNonce)
	full := "n,," + c.clientFirstBare
	return base64.StdEncoding.EncodeToString([]byte(full))
}

// serverFirst consumes the base64 server-first message ("r=...,s=...,
// i=...") and returns the base64 client-final message
// ("c=biws,r=...,p=...").
func (c *scramClient) serverFirst(b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("handshake: malformed scram server-first: %w", err)
	}
	c.serverFirst = string(raw)

	fields := parseScramFields(c.serverFirst)
	nonce, salt, itersStr := fields["r"], fields["s"], fields["i"]
	if !strings.HasPrefix(nonce, c.clientNonce) {
		return "", fmt.Errorf("handshake: scram server nonce does not extend client nonce")
	}
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("handshake: malformed scram salt: %w", err)
	}
	var iters int
	if _, err := fmt.Sscanf(itersStr, "%d", &iters); err != nil || iters <= 0 {
		return "", fmt.Errorf("handshake: malformed scram iteration count %q", itersStr)
	}

	c.saltedPassword = pbkdf2.Key([]byte(c.password), saltBytes, iters, sha256.Size, sha256.New)

	clientFinalWithoutProof := "c=biws,r=" + nonce
	c.authMessage = c.clientFirstBare + "," + c.serverFirst + "," + clientFinalWithoutProof

	clientKey := hmacSHA256(c.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(c.authMessage))
	clientProof := xorBytes(clientKey, clientSignature)

	final := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	c.finalSent = true
	return base64.StdEncoding.EncodeToString([]byte(final)), nil
}

// VerifyServerFinal checks the "v=..." server-final message against
// the ServerKey/ServerSignature this client computed, per RFC 5802's
// final mutual-authentication step.
func (c *scramClient) VerifyServerFinal(b64 string) error {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("handshake: malformed scram server-final: %w", err)
	}
	fields := parseScramFields(string(raw))
	v, ok := fields["v"]
	if !ok {
		return fmt.Errorf("handshake: scram server-final missing v=")
	}
	gotSig, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return fmt.Errorf("handshake: malformed scram server signature: %w", err)
	}
	serverKey := hmacSHA256(c.saltedPassword, []byte("Server Key"))
	wantSig := hmacSHA256(serverKey, []byte(c.authMessage))
	if !hmac.Equal(gotSig, wantSig) {
		return fmt.Errorf("handshake: scram server signature mismatch")
	}
	return nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// parseScramFields splits a SCRAM attribute-value list ("r=x,s=y,i=z")
// into a map. Commas embedded in values are not expected in any of
// the fields this client reads (r, s, i, v).
func parseScramFields(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[name] = val
	}
	return out
}

// scramEscape applies the RFC 5802 saslprep-adjacent escaping SCRAM
// requires for '=' and ',' in a username.
func scramEscape(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}
