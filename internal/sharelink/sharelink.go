// Package sharelink builds verification URLs and QR image links for issued
// credentials.
package sharelink

import (
	"fmt"
	"net/url"
	"strings"
)

const qrAPIBase = "https://api.qrserver.com/v1/create-qr-code/"

// Builder constructs share links against a verifier deployment.
type Builder struct {
	baseURL string
}

// NewBuilder creates a Builder. baseURL is the verifier's public origin,
// e.g. "https://skillchain.example.com".
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// VerifyTokenURL returns the self-contained verification link. The token
// embeds the full credential, so the link works even when the verifier
// cannot reach the store.
func (b *Builder) VerifyTokenURL(token string) string {
	return fmt.Sprintf("%s/verify?data=%s", b.baseURL, url.QueryEscape(token))
}

// VerifyIDURL returns the store-lookup verification link.
func (b *Builder) VerifyIDURL(id string) string {
	return fmt.Sprintf("%s/verify?id=%s", b.baseURL, url.QueryEscape(id))
}

// QRImageURL returns a QR image link encoding the target URL.
func QRImageURL(target string, size int) string {
	if size <= 0 {
		size = 200
	}
	return fmt.Sprintf("%s?size=%dx%d&data=%s", qrAPIBase, size, size, url.QueryEscape(target))
}
