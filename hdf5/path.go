package hdf5

import (
	"fmt"
	"strings"
)

// ParseAttrPath splits an attribute path of the form /group/object@name into
// the object path and the attribute name.
//
// Examples:
//   - "/@version"          -> "/", "version"
//   - "/Info@Inovesa_v"    -> "/Info", "Inovesa_v"
//   - "Info/Parameters@Ib" -> "/Info/Parameters", "Ib"
func ParseAttrPath(path string) (objectPath, attrName string, err error) {
	at := strings.LastIndex(path, "@")
	if at < 0 {
		return "", "", fmt.Errorf("%w: attribute path %q has no '@'", ErrInvalidPath, path)
	}
	attrName = path[at+1:]
	if attrName == "" {
		return "", "", fmt.Errorf("%w: empty attribute name in %q", ErrInvalidPath, path)
	}
	return CleanPath(path[:at]), attrName, nil
}

// JoinAttrPath builds an attribute path from an object path and a name.
func JoinAttrPath(objectPath, attrName string) string {
	objectPath = CleanPath(objectPath)
	if objectPath == "/" {
		return "/@" + attrName
	}
	return objectPath + "@" + attrName
}

// SplitPath returns the non-empty components of a slash-separated path.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// CleanPath returns the absolute form of path: a leading slash, no empty or
// "." components and no trailing slash.
func CleanPath(path string) string {
	return "/" + strings.Join(SplitPath(path), "/")
}

// JoinPath joins a parent path and a child name.
func JoinPath(parent, name string) string {
	return CleanPath(parent + "/" + name)
}
