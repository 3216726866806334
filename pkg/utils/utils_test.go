package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "server.log")
		logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
		require.NoError(t, err)

		logger.Info("hello")
		require.NoError(t, logger.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, string(data), `"timestamp"`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: path, Format: "console"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1))
		assert.True(t, logger.Core().Enabled(0))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewLogger(LoggerConfig{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"receipt.pdf", "receipt.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\Lunch Receipt.jpg`, "Lunch Receipt.jpg"},
		{"bad\x00name.png", "badname.png"},
		{"a<b>c.txt", "a_b_c.txt"},
		{"", "upload"},
		{"..", "upload"},
		{"Quittung-März.heic", "Quittung-März.heic"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in, "upload"))
		})
	}

	long := strings.Repeat("x", 300) + ".pdf"
	got := SanitizeFilename(long, "upload")
	assert.Len(t, got, maxFilenameLen)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Team lunch", SanitizeString("  Team\x07 lunch\n"))
}
