// Package preview picks how a stored file is shown: it classifies content
// into a tag and routes the tag to a rendering strategy.
package preview

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Tag is the classification a strategy is chosen by.
type Tag string

const (
	TagImage   Tag = "image"
	TagVideo   Tag = "video"
	TagAudio   Tag = "audio"
	TagPDF     Tag = "pdf"
	TagText    Tag = "text"
	TagArchive Tag = "archive"
	TagOther   Tag = "other"
)

// sniffLen is how much of the file Classify looks at.
const sniffLen = 3072

var archiveTypes = map[string]bool{
	"application/zip":              true,
	"application/gzip":             true,
	"application/x-tar":            true,
	"application/x-7z-compressed":  true,
	"application/x-rar-compressed": true,
	"application/x-bzip2":          true,
	"application/x-xz":             true,
	"application/zstd":             true,
}

var textTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/x-sh":       true,
}

var extTags = map[string]Tag{
	".jpg": TagImage, ".jpeg": TagImage, ".png": TagImage, ".gif": TagImage, ".webp": TagImage,
	".mp4": TagVideo, ".mov": TagVideo, ".mkv": TagVideo, ".webm": TagVideo,
	".mp3": TagAudio, ".wav": TagAudio, ".flac": TagAudio, ".ogg": TagAudio, ".m4a": TagAudio,
	".pdf": TagPDF,
	".txt": TagText, ".md": TagText, ".csv": TagText, ".json": TagText, ".log": TagText, ".go": TagText,
	".zip": TagArchive, ".tar": TagArchive, ".gz": TagArchive, ".7z": TagArchive, ".rar": TagArchive,
}

// Classify tags content by sniffing head, falling back to the extension of
// name when the bytes are not conclusive.
func Classify(name string, head []byte) (Tag, string) {
	mt := mimetype.Detect(head)
	base := strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])

	switch {
	case strings.HasPrefix(base, "image/"):
		return TagImage, mt.String()
	case strings.HasPrefix(base, "video/"):
		return TagVideo, mt.String()
	case strings.HasPrefix(base, "audio/"):
		return TagAudio, mt.String()
	case base == "application/pdf":
		return TagPDF, mt.String()
	case archiveTypes[base]:
		return TagArchive, mt.String()
	case strings.HasPrefix(base, "text/") || textTypes[base]:
		if tag, ok := extTags[strings.ToLower(path.Ext(name))]; ok && tag != TagText {
			// e.g. an empty .mp4 sniffs as text/plain
			return tag, mt.String()
		}
		return TagText, mt.String()
	}

	if tag, ok := extTags[strings.ToLower(path.Ext(name))]; ok {
		return tag, mt.String()
	}
	return TagOther, mt.String()
}
