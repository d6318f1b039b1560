package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sifan077/FlexQR/internal/app/model"
)

type queryParam struct {
	key   string
	value string
}

func campaignParams(c model.Campaign) []queryParam {
	return []queryParam{
		{"utm_source", c.Source},
		{"utm_medium", c.Medium},
		{"utm_campaign", c.Name},
		{"utm_term", c.Term},
		{"utm_content", c.Content},
	}
}

// ParseDestination parses an absolute destination URL.
func ParseDestination(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid destination url %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("invalid destination url %q: missing scheme", raw)
	}
	if isWebScheme(u.Scheme) && u.Host == "" {
		return nil, fmt.Errorf("invalid destination url %q: missing host", raw)
	}
	return u, nil
}

// BuildRedirectURL appends the non-empty UTM parameters of c to destination.
// Existing parameters keep their position; UTM keys already present are overwritten.
func BuildRedirectURL(destination string, c model.Campaign) (string, error) {
	u, err := ParseDestination(destination)
	if err != nil {
		return "", err
	}
	if isWebScheme(u.Scheme) && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	u.RawQuery = setQueryParams(u.RawQuery, campaignParams(c))
	return u.String(), nil
}

func isWebScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}

func setQueryParams(rawQuery string, params []queryParam) string {
	var pairs []string
	for _, seg := range strings.Split(rawQuery, "&") {
		if seg != "" {
			pairs = append(pairs, seg)
		}
	}

	for _, p := range params {
		if p.value == "" {
			continue
		}
		encoded := url.QueryEscape(p.key) + "=" + url.QueryEscape(p.value)

		next := make([]string, 0, len(pairs)+1)
		replaced := false
		for _, seg := range pairs {
			if queryKey(seg) != p.key {
				next = append(next, seg)
				continue
			}
			if !replaced {
				next = append(next, encoded)
				replaced = true
			}
		}
		if !replaced {
			next = append(next, encoded)
		}
		pairs = next
	}

	return strings.Join(pairs, "&")
}

func queryKey(seg string) string {
	key, _, _ := strings.Cut(seg, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		return unescaped
	}
	return key
}
