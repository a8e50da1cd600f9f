package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// SafeBaseName reduces an uploaded file name to a string safe to use
// on the local filesystem. Directory components are stripped, the
// extension is lowercased and anything outside [a-zA-Z0-9_-] in the
// stem is replaced with an underscore.
func SafeBaseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "upload"
	}
	return cleaned + strings.ToLower(ext)
}
