package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
	"unicode"
)

// Error kinds recorded on failed RequestResults.
const (
	KindTimeout           = "Timeout"
	KindCanceled          = "Canceled"
	KindDNS               = "DNS lookup failed"
	KindConnectionRefused = "Connection refused"
	KindConnectionReset   = "Connection reset"
	KindConnection        = "Connection error"
	KindTLS               = "TLS error"
	KindTruncated         = "Truncated response"
	KindUnknown           = "Unknown error"
)

// ClassifyError maps a transport error to a short label used to group
// failures in logs.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		opErr   *net.OpError
		certErr *tls.CertificateVerificationError
		authErr x509.UnknownAuthorityError
		recErr  tls.RecordHeaderError
		urlErr  *url.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.As(err, &dnsErr):
		return KindDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return KindConnectionReset
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &recErr):
		return KindTLS
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindTruncated
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindConnection
	}

	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	return FriendlyErrorName(fmt.Sprintf("%T", err))
}

// FriendlyErrorName turns a Go error type name such as "*net.OpError" into
// "Op Error (net)". Types from package main drop the package suffix.
func FriendlyErrorName(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if name == "" {
		return KindUnknown
	}
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}

	pkg, typ, found := strings.Cut(name, ".")
	if !found {
		pkg, typ = "", name
	}
	pretty := strings.Join(splitCamel(typ), " ")
	if pretty == "" {
		pretty = typ
	}
	if pkg == "" || pkg == "main" {
		return pretty
	}
	return fmt.Sprintf("%s (%s)", pretty, pkg)
}

// splitCamel breaks an identifier into capitalized words, keeping acronyms
// such as "TLS" or "EOF" intact.
func splitCamel(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i <= len(runes); i++ {
		boundary := i == len(runes)
		if !boundary {
			r, prev := runes[i], runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			boundary = unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsUpper(prev) && nextLower) ||
				unicode.IsDigit(r) && !unicode.IsDigit(prev)
		}
		if !boundary {
			continue
		}
		word := string(runes[start:i])
		if strings.ToUpper(word) != word {
			word = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
		words = append(words, word)
		start = i
	}
	return words
}
