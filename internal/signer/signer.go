// Package signer implements the RPC-style request signing scheme shared by
// the moderation and OCR vendor endpoints: canonicalized query string,
// RFC 3986 percent encoding, HMAC-SHA1 over method+path+query, base64 digest.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Signer struct {
	AccessKeyID     string
	AccessKeySecret string
}

func New(accessKeyID, accessKeySecret string) Signer {
	return Signer{
		AccessKeyID:     accessKeyID,
		AccessKeySecret: accessKeySecret,
	}
}

// CommonParams returns the shared parameter set every signed call carries.
// Action and Version vary per vendor API.
func (s Signer) CommonParams(action, version string) map[string]string {
	return map[string]string{
		"AccessKeyId":      s.AccessKeyID,
		"Action":           action,
		"Format":           "JSON",
		"RegionId":         "cn-shanghai",
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureNonce":   uuid.NewString(),
		"SignatureVersion": "1.0",
		"Timestamp":        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		"Version":          version,
	}
}

// SignedBody signs params for the given HTTP method and returns the complete
// application/x-www-form-urlencoded request body, Signature included.
func (s Signer) SignedBody(method string, params map[string]string) string {
	signature := s.Sign(method, params)

	keys := make([]string, 0, len(params)+1)
	for k := range params {
		keys = append(keys, k)
	}
	keys = append(keys, "Signature")
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if k == "Signature" {
			v = signature
		}
		pairs = append(pairs, PercentEncode(k)+"="+PercentEncode(v))
	}

	return strings.Join(pairs, "&")
}

// Sign computes the base64 HMAC-SHA1 signature over the canonicalized
// parameter set.
func (s Signer) Sign(method string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, PercentEncode(k)+"="+PercentEncode(params[k]))
	}
	canonicalized := strings.Join(pairs, "&")

	stringToSign := method + "&" + PercentEncode("/") + "&" + PercentEncode(canonicalized)

	mac := hmac.New(sha1.New, []byte(s.AccessKeySecret+"&"))
	mac.Write([]byte(stringToSign))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// PercentEncode applies RFC 3986 encoding: unreserved characters
// (alphanumerics and -_.~) pass through, space becomes %20, everything else
// is escaped.
func PercentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
