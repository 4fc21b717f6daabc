package profile

import (
	"encoding/base64"
	"net/url"
	"path"
	"strings"
)

var videoExts = map[string]bool{".mp4": true, ".webm": true, ".ogg": true, ".mov": true}

// IsVideo reports whether a media entry should render as a video: a known
// video extension, a YouTube link, or an inlined video blob.
func IsVideo(media string) bool {
	if strings.HasPrefix(media, "data:") {
		return strings.HasPrefix(media, "data:video/")
	}
	if strings.Contains(media, "youtube.com") || strings.Contains(media, "youtu.be") {
		return true
	}
	p := media
	if u, err := url.Parse(media); err == nil && u.Path != "" {
		p = u.Path
	}
	return videoExts[strings.ToLower(path.Ext(p))]
}

// DataURL inlines a blob as a base64 data URL, the form media lists use for
// files added without an upload.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
