package cloudsync

import "strings"

// SplitPath returns the folder names of a slash-separated remote path,
// ignoring empty segments: "a//b/" yields ["a", "b"], "" yields none.
func SplitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// ObjectKey joins a remote directory and a file name into an object key
// without leading or doubled slashes.
func ObjectKey(remoteDir, name string) string {
	return strings.Join(append(SplitPath(remoteDir), name), "/")
}

// keyPrefix returns the listing prefix of remoteDir: "" or "a/b/".
func keyPrefix(remoteDir string) string {
	segs := SplitPath(remoteDir)
	if len(segs) == 0 {
		return ""
	}
	return strings.Join(segs, "/") + "/"
}

// baseName returns the last segment of an object key.
func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
