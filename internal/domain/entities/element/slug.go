package element

import (
	"errors"
	"regexp"
	"strings"
)

const maxSlugLength = 255

var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})?$`)

// IsValidLanguage reports whether lang is a lowercase language tag such as "en" or "pt-br".
func IsValidLanguage(lang string) bool {
	return languagePattern.MatchString(lang)
}

// Key identifies a slug by its lower-cased url and language.
func (s Slug) Key() string {
	return strings.ToLower(s.URL) + "|" + s.Language
}

// IsAbsolute reports whether the slug url starts at the site root.
func (s Slug) IsAbsolute() bool {
	return strings.HasPrefix(s.URL, "/")
}

// Active reports whether the slug is not deprecated.
func (s Slug) Active() bool {
	return !s.Deprecated
}

// Validate checks the structural form of the slug.
func (s Slug) Validate() error {
	if !IsValidLanguage(s.Language) {
		return errors.New("invalid language code")
	}
	url := strings.ToLower(s.URL)
	if url == "" {
		return errors.New("url is empty")
	}
	if len(url) > maxSlugLength {
		return errors.New("url is too long")
	}
	for i := 0; i < len(url); i++ {
		c := url[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == '~', c == '/':
		default:
			return errors.New("url contains characters that are not allowed")
		}
	}
	if strings.Contains(url, "//") {
		return errors.New("url contains an empty path segment")
	}
	if url == "/" {
		return nil
	}
	if strings.HasSuffix(url, "/") {
		return errors.New("url must not end with a slash")
	}

	rest := url
	if strings.HasPrefix(rest, "/") {
		rest = rest[1:]
	} else {
		rest = StripRelativePrefix(rest)
		if rest == "" {
			return errors.New("url does not name a path below its parent")
		}
	}
	for _, segment := range strings.Split(rest, "/") {
		if segment == "." || segment == ".." {
			return errors.New("relative segments are only allowed at the start of the url")
		}
	}
	return nil
}

// StripRelativePrefix removes every leading "./" and "../" segment.
func StripRelativePrefix(url string) string {
	for {
		switch {
		case strings.HasPrefix(url, "./"):
			url = url[2:]
		case strings.HasPrefix(url, "../"):
			url = url[3:]
		default:
			return url
		}
	}
}

// MergeSlugs merges next into previous. Slugs in next replace entries with
// the same key; previously active slugs missing from next are kept but
// deprecated and lose their default flag. The result never shrinks.
func MergeSlugs(previous, next []Slug) []Slug {
	incoming := make(map[string]Slug, len(next))
	for _, s := range next {
		incoming[s.Key()] = s
	}

	merged := make([]Slug, 0, len(previous)+len(next))
	seen := make(map[string]bool, len(previous)+len(next))
	for _, old := range previous {
		key := old.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if replacement, ok := incoming[key]; ok {
			merged = append(merged, replacement)
			continue
		}
		old.Deprecated = true
		old.Default = false
		merged = append(merged, old)
	}
	for _, s := range next {
		key := s.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, s)
	}
	return merged
}
