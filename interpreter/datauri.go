package interpreter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotImage = errors.New("file is not an image")

const (
	dataURIPrefix = "data:"
	base64Marker  = ";base64,"
)

// ParseDataURI splits "data:<mime>;base64,<payload>" into its parts.
// ok is false when s is not a well-formed base64 data URI.
func ParseDataURI(s string) (img InlineImage, ok bool) {
	if !strings.HasPrefix(s, dataURIPrefix) {
		return InlineImage{}, false
	}
	rest := s[len(dataURIPrefix):]
	idx := strings.Index(rest, base64Marker)
	if idx <= 0 {
		return InlineImage{}, false
	}
	mime := rest[:idx]
	payload := rest[idx+len(base64Marker):]
	if payload == "" {
		return InlineImage{}, false
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return InlineImage{}, false
	}
	return InlineImage{MIMEType: mime, Data: payload}, true
}

// EncodeDataURI is the inverse of ParseDataURI.
func EncodeDataURI(mime string, data []byte) string {
	return dataURIPrefix + mime + base64Marker + base64.StdEncoding.EncodeToString(data)
}

// FileToDataURI 读取本地图片并转为 data URI，供 chartImage/birthChartImage 使用。
func FileToDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	mime, _, _ := strings.Cut(mt.String(), ";")
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s: %w (detected %s)", path, ErrNotImage, mime)
	}
	return EncodeDataURI(mime, data), nil
}
