package transform

import "strings"

// Profile URL prefixes for bare handles.
const (
	twitterPrefix  = "https://twitter.com/"
	facebookPrefix = "https://facebook.com/"
)

// SocialLinks are the canonical link fields stored on profiles.
type SocialLinks struct {
	Website    string
	Twitter    string
	Facebook   string
	Reddit     string
	Repository string
	Whitepaper string
}

// NormalizeLinks extracts canonical links from a coin detail links bag.
// Unrecognized or malformed entries are left empty.
func NormalizeLinks(bag map[string]any) SocialLinks {
	var l SocialLinks
	if bag == nil {
		return l
	}

	l.Website = firstString(bag["homepage"])
	l.Twitter = ProfileURL(twitterPrefix, stringValue(bag["twitter_screen_name"]))
	l.Facebook = ProfileURL(facebookPrefix, stringValue(bag["facebook_username"]))
	l.Reddit = strings.TrimSpace(stringValue(bag["subreddit_url"]))
	if repos, ok := bag["repos_url"].(map[string]any); ok {
		l.Repository = firstString(repos["github"])
	}
	l.Whitepaper = strings.TrimSpace(stringValue(bag["whitepaper"]))

	return l
}

// ProfileURL turns a bare handle into a profile URL. Values that are already
// URLs are kept as given; empty handles stay empty.
func ProfileURL(prefix, handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	return prefix + strings.TrimPrefix(handle, "@")
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// firstString returns the first non-empty string in a JSON array.
func firstString(v any) string {
	switch vals := v.(type) {
	case []any:
		for _, e := range vals {
			if s := strings.TrimSpace(stringValue(e)); s != "" {
				return s
			}
		}
	case []string:
		for _, s := range vals {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
