package document

import "strings"

// PresentableValue shortens a resolved value that references an external
// resource so it fits a folded placeholder:
//
//	jar:de.hybris.Loader&/a/b/c.png  ->  jar:Loader&../c.png
//	zip:/tmp/a/media.zip&img.png     ->  zip:../media.zip&img.png
//	file:C:\a\b\c.txt                ->  file:..\c.txt
//
// Other values are returned as is; a blank value becomes a single space.
func PresentableValue(resolved string) string {
	switch {
	case strings.HasPrefix(resolved, "jar:"):
		loader, path, ok := strings.Cut(strings.TrimPrefix(resolved, "jar:"), "&")
		if ok && !strings.Contains(path, "&") {
			return "jar:" + loader[strings.LastIndexByte(loader, '.')+1:] + "&" + FileName(path)
		}
	case strings.HasPrefix(resolved, "zip:"):
		archive, entry, ok := strings.Cut(strings.TrimPrefix(resolved, "zip:"), "&")
		if ok && !strings.Contains(entry, "&") {
			return "zip:" + FileName(archive) + "&" + entry
		}
	case strings.HasPrefix(resolved, "file:"):
		return "file:" + FileName(strings.TrimPrefix(resolved, "file:"))
	}

	if strings.TrimSpace(resolved) == "" {
		return " "
	}
	return resolved
}

// FileName collapses a path with more than one separator of either kind to
// ".." followed by its last segment, keeping the separator that precedes it.
func FileName(path string) string {
	if strings.Count(path, `\`) <= 1 && strings.Count(path, "/") <= 1 {
		return path
	}

	name := path
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i:]
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i:]
	}
	return ".." + name
}
