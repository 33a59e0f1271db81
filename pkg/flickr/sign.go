package flickr

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// oauthParams returns the base OAuth 1.0a protocol parameters for a request.
func (c *Client) oauthParams() map[string]string {
	return map[string]string{
		"oauth_consumer_key":     c.apiKey,
		"oauth_token":            c.oauthToken,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_nonce":            newNonce(),
		"oauth_version":          "1.0",
	}
}

// sign computes the HMAC-SHA1 OAuth signature over method, endpoint and the
// combined parameter set, and adds it to params as oauth_signature.
func (c *Client) sign(method, endpoint string, params map[string]string) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}

	base := strings.Join([]string{
		method,
		percentEncode(endpoint),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	key := percentEncode(c.apiSecret) + "&" + percentEncode(c.oauthTokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	params["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode applies RFC 3986 encoding as OAuth 1.0a requires; Go's
// QueryEscape uses + for spaces, which breaks signature verification.
func percentEncode(value string) string {
	escaped := url.QueryEscape(value)
	return strings.ReplaceAll(escaped, "+", "%20")
}

func newNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
