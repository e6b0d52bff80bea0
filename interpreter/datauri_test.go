package interpreter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want InlineImage
		ok   bool
	}{
		{"png", "data:image/png;base64,iVBORw0KGgo=", InlineImage{"image/png", "iVBORw0KGgo="}, true},
		{"no prefix", "image/png;base64,iVBORw0KGgo=", InlineImage{}, false},
		{"not base64 encoded", "data:text/plain,hello", InlineImage{}, false},
		{"empty mime", "data:;base64,iVBORw0KGgo=", InlineImage{}, false},
		{"empty payload", "data:image/png;base64,", InlineImage{}, false},
		{"corrupt payload", "data:image/png;base64,@@@", InlineImage{}, false},
		{"empty", "", InlineImage{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDataURI(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeDataURI_ParsesBack(t *testing.T) {
	uri := EncodeDataURI("image/gif", []byte("GIF89a"))
	img, ok := ParseDataURI(uri)
	require.True(t, ok)
	assert.Equal(t, "image/gif", img.MIMEType)
}

func TestFileToDataURI(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o600))

	uri, err := FileToDataURI(png)
	require.NoError(t, err)
	img, ok := ParseDataURI(uri)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = FileToDataURI(txt)
	require.ErrorIs(t, err, ErrNotImage)

	_, err = FileToDataURI(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}
