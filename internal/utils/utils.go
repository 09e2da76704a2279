package utils

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalizeSnapshotURL normalizes the URL attached to a snapshot so the
// comparison server sees one spelling per page regardless of which runtime
// reported it: lowercased scheme/host, punycoded host, default ports and
// fragments stripped, trailing slash removed (except root).
func CanonicalizeSnapshotURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if host := u.Hostname(); host != "" {
		ascii, err := idna.Lookup.ToASCII(host)
		if err == nil && ascii != host {
			if port := u.Port(); port != "" {
				u.Host = ascii + ":" + port
			} else {
				u.Host = ascii
			}
		}
	}

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host, _, _ = strings.Cut(u.Host, ":")
	}

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	return u.String(), nil
}
