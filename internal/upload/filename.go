package upload

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const resultSuffix = "_transcription.txt"

var allowedExtensions = map[string]struct{}{
	"mp4": {},
	"wav": {},
	"mp3": {},
	"aac": {},
	"m4a": {},
}

// AllowedFile reports whether name has one of the accepted media extensions.
// Only the text after the last dot counts, compared case-insensitively.
func AllowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(name[i+1:])]
	return ok
}

// SecureFilename reduces name to a flat ASCII filename that is safe to join onto
// the upload directory. Accents are folded, path separators become underscores
// along with whitespace, every other character outside [A-Za-z0-9_.-] is removed,
// and leading or trailing dots and underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	ascii := strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	joined := strings.Join(strings.Fields(ascii), "_")

	var out strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			out.WriteRune(r)
		}
	}
	return strings.Trim(out.String(), "._")
}

// ResultFilename names the transcript written for an uploaded file.
func ResultFilename(savedName string) string {
	return strings.TrimSuffix(savedName, filepath.Ext(savedName)) + resultSuffix
}

// IsSafeDownloadName reports whether name can be served from the upload directory
// without escaping it.
func IsSafeDownloadName(name string) bool {
	return name != "" && name == SecureFilename(name)
}
