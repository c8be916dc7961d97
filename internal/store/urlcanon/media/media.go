// Package media provides YouTube- and Vimeo-aware URL canonicalizers,
// registered into internal/store/urlcanon's plugin chain so media URLs
// collapse to one canonical form regardless of how they were shared
// (shortlink, mobile link, embed link, with/without tracking params).
package media

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kashrun/kash/internal/store/urlcanon"
)

type youtube struct{}

var (
	ytWatchHost  = regexp.MustCompile(`^(www\.|m\.)?youtube\.com$`)
	ytShortHost  = regexp.MustCompile(`^(www\.)?youtu\.be$`)
	ytVideoIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
)

func (youtube) Match(u *url.URL) (canonical string, mediaID string, ok bool) {
	host := strings.ToLower(u.Host)

	if ytShortHost.MatchString(host) {
		id := strings.Trim(u.Path, "/")
		if ytVideoIDRe.MatchString(id) {
			return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id), id, true
		}
		return "", "", false
	}

	if ytVideoIDRe.MatchString(host) {
		return "", "", false
	}

	if !ytWatchHost.MatchString(host) {
		return "", "", false
	}

	switch {
	case u.Path == "/watch":
		id := u.Query().Get("v")
		if id == "" || !ytVideoIDRe.MatchString(id) {
			return "", "", false
		}
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id), id, true
	case strings.HasPrefix(u.Path, "/shorts/"):
		id := strings.TrimPrefix(u.Path, "/shorts/")
		if !ytVideoIDRe.MatchString(id) {
			return "", "", false
		}
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id), id, true
	case strings.HasPrefix(u.Path, "/embed/"):
		id := strings.TrimPrefix(u.Path, "/embed/")
		if !ytVideoIDRe.MatchString(id) {
			return "", "", false
		}
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id), id, true
	}
	return "", "", false
}

type vimeo struct{}

var (
	vimeoHost  = regexp.MustCompile(`^(www\.|player\.)?vimeo\.com$`)
	vimeoIDRe  = regexp.MustCompile(`^[0-9]+$`)
)

func (vimeo) Match(u *url.URL) (canonical string, mediaID string, ok bool) {
	if !vimeoHost.MatchString(strings.ToLower(u.Host)) {
		return "", "", false
	}
	path := strings.Trim(u.Path, "/")
	path = strings.TrimPrefix(path, "video/")
	if !vimeoIDRe.MatchString(path) {
		return "", "", false
	}
	return fmt.Sprintf("https://vimeo.com/%s", path), path, true
}

// RegisterDefaults registers the YouTube and Vimeo canonicalizers into the
// urlcanon plugin chain. Call once at process startup.
func RegisterDefaults() {
	urlcanon.Register(youtube{})
	urlcanon.Register(vimeo{})
}
