package flickr

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "hello%20world", percentEncode("hello world"))
	assert.Equal(t, "a%26b%3Dc", percentEncode("a&b=c"))
	assert.Equal(t, "plain", percentEncode("plain"))
}

func TestSignProducesStableSignature(t *testing.T) {
	c := &Client{
		apiKey:           "consumer-key",
		apiSecret:        "consumer-secret",
		oauthToken:       "token",
		oauthTokenSecret: "token-secret",
	}

	params := map[string]string{
		"oauth_consumer_key":     c.apiKey,
		"oauth_token":            c.oauthToken,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_nonce":            "fixed-nonce",
		"oauth_version":          "1.0",
		"method":                 "flickr.photosets.create",
		"title":                  "my photos",
	}
	c.sign("POST", "https://api.flickr.com/services/rest", params)

	sig, ok := params["oauth_signature"]
	require.True(t, ok, "signature must be added to the parameter set")

	// Recompute with the parameters sorted and encoded by hand.
	base := "POST&" +
		percentEncode("https://api.flickr.com/services/rest") + "&" +
		percentEncode("method=flickr.photosets.create"+
			"&oauth_consumer_key=consumer-key"+
			"&oauth_nonce=fixed-nonce"+
			"&oauth_signature_method=HMAC-SHA1"+
			"&oauth_timestamp=1700000000"+
			"&oauth_token=token"+
			"&oauth_version=1.0"+
			"&title=my%20photos")
	mac := hmac.New(sha1.New, []byte("consumer-secret&token-secret"))
	mac.Write([]byte(base))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, sig)
}

func TestSignDiffersPerTokenSecret(t *testing.T) {
	params := func() map[string]string {
		return map[string]string{
			"oauth_timestamp": "1700000000",
			"oauth_nonce":     "fixed-nonce",
		}
	}

	a := &Client{apiSecret: "secret", oauthTokenSecret: "one"}
	b := &Client{apiSecret: "secret", oauthTokenSecret: "two"}

	pa, pb := params(), params()
	a.sign("GET", "https://api.flickr.com/services/rest", pa)
	b.sign("GET", "https://api.flickr.com/services/rest", pb)

	require.NotEqual(t, pa["oauth_signature"], pb["oauth_signature"])
}

func TestNewNonceUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		nonce := newNonce()
		require.False(t, seen[nonce], "nonce repeated: %s", nonce)
		seen[nonce] = true
	}
}
