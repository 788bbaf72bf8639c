package gitrepo

import "strings"

// DeriveRemoteURL derives the HTTPS clone/push URL for a GitHub-style
// repository identified as "owner/name". See DeriveBaseURL for the
// resolution rules for the host portion.
func DeriveRemoteURL(apiURL, gitBaseURL, repo string) string {
	return DeriveBaseURL(apiURL, gitBaseURL) + "/" + repo + ".git"
}

// DeriveBaseURL derives the Git base URL (scheme + host, no repo
// path) a sync target should clone/push against.
//
// Resolution order:
//  1. If gitBaseURL is non-empty after trimming, use it.
//  2. Otherwise derive from apiURL:
//     - "https://api.github.com"   -> "https://github.com"
//     - "https://<host>/api/v3"    -> "https://<host>"
//     - anything else              -> trailing slash stripped, as-is
//
// This is what makes the bridge work unmodified against both
// GitHub.com and a GitHub Enterprise Server tenant: the only
// configuration surface is the API URL (or an explicit override for
// hosts that don't follow either convention).
func DeriveBaseURL(apiURL, gitBaseURL string) string {
	if explicit := strings.TrimSpace(gitBaseURL); explicit != "" {
		return strings.TrimSuffix(explicit, "/")
	}

	url := strings.TrimSuffix(strings.TrimSpace(apiURL), "/")

	if strings.EqualFold(url, "https://api.github.com") {
		return "https://github.com"
	}

	if base, ok := strings.CutSuffix(url, "/api/v3"); ok {
		return base
	}

	return url
}
