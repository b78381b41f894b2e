package constants

import "strings"

// ImageExt is the extension pdftoppm produces with the -jpeg flag.
const ImageExt = "jpg"

// AllowedUploadExtensions holds the file extensions accepted on upload.
var AllowedUploadExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedUpload reports whether a (possibly dotted) extension is accepted.
func IsAllowedUpload(ext string) bool {
	_, ok := AllowedUploadExtensions[NormalizeExt(ext)]
	return ok
}
