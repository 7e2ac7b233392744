package service

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidOrigin = errors.New("origin not allowed")

// OriginResolver maps a browser-reported Origin header to the relying-party
// ID a ceremony must be bound to. The origin must be on the origin allow-list
// AND its hostname on the relying-party-id allow-list; everything else fails
// closed before any challenge work happens.
type OriginResolver struct {
	// Origins is the exact allow-list, scheme included, e.g.
	// "https://app.push.org". Comparison is case-insensitive on the host.
	Origins []string

	// RPIDs is the allow-list of relying-party IDs (hostnames). An origin
	// whose hostname is not listed here does not resolve even when the
	// origin itself is allowed.
	RPIDs []string
}

// Resolve returns the canonical origin and its relying-party ID (the origin
// host, port stripped). An empty origin is never allowed.
func (r *OriginResolver) Resolve(origin string) (rpID string, canonical string, err error) {
	if origin == "" {
		return "", "", ErrInvalidOrigin
	}

	for _, allowed := range r.Origins {
		if !strings.EqualFold(allowed, origin) {
			continue
		}
		u, err := url.Parse(allowed)
		if err != nil || u.Hostname() == "" {
			return "", "", ErrInvalidOrigin
		}
		host := u.Hostname()
		for _, id := range r.RPIDs {
			if strings.EqualFold(id, host) {
				return host, allowed, nil
			}
		}
		return "", "", ErrInvalidOrigin
	}
	return "", "", ErrInvalidOrigin
}
