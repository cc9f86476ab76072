package parser

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// IsBinary checks first 512 bytes for null bytes.
func IsBinary(content []byte) bool {
	const maxCheckSize = 512
	size := min(len(content), maxCheckSize)
	return bytes.IndexByte(content[:size], 0) != -1
}

// IsValidUTF8 validates the content is valid UTF-8.
func IsValidUTF8(content []byte) bool {
	return utf8.Valid(content)
}

// StripBOM removes UTF-8 BOM (0xEF, 0xBB, 0xBF) if present.
func StripBOM(content []byte) []byte {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:]
	}
	return content
}

// DetectFileType maps file extension to type string.
// Returns: "impex", "csv" or "unknown".
func DetectFileType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".impex":
		return "impex"
	case ".csv":
		return "csv"
	default:
		return "unknown"
	}
}
