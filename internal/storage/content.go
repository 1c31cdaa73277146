package storage

import (
	"io"
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

const sniffLen = 3072

// contentType returns req.ContentType, or sniffs the head of a seekable
// body, or falls back to the file extension.
func contentType(req domain.PutRequest) string {
	if req.ContentType != "" {
		return req.ContentType
	}
	if rs, ok := req.Body.(io.ReadSeeker); ok {
		buf := make([]byte, sniffLen)
		n, _ := io.ReadFull(rs, buf)
		if _, err := rs.Seek(0, io.SeekStart); err == nil && n > 0 {
			return mimetype.Detect(buf[:n]).String()
		}
	}
	if ct := mime.TypeByExtension(path.Ext(req.Name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
