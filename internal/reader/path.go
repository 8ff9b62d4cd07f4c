package reader

import (
	"strings"
)

// rootAliases are stripped from the front of a lookup path. A SYSTEM hive's
// root stands for HKLM\SYSTEM, so both spellings reach the same key.
var rootAliases = []string{
	`HKEY_LOCAL_MACHINE\SYSTEM`, `HKLM\SYSTEM`,
	"HKEY_LOCAL_MACHINE", "HKLM",
}

// Find resolves a backslash-separated path from the root, ignoring case.
// Forward slashes are accepted. A leading HKLM or HKLM\SYSTEM is stripped,
// as is a first segment naming the root key itself.
func (r *Reader) Find(path string) (NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	segments := normalizePath(stripRootPrefix(strings.TrimSpace(path)))
	current := NodeID(r.head.RootCellOffset)
	if len(segments) == 0 {
		return current, nil
	}

	rootName, err := r.KeyName(current)
	if err != nil {
		return 0, err
	}
	if rootName != "" && strings.EqualFold(segments[0], rootName) {
		segments = segments[1:]
	}

	for _, seg := range segments {
		current, err = r.GetChild(current, seg)
		if err != nil {
			return 0, notFound(path)
		}
	}
	return current, nil
}

func normalizePath(path string) []string {
	path = strings.ReplaceAll(path, "/", `\`)
	parts := strings.Split(path, `\`)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func stripRootPrefix(path string) string {
	upper := strings.ToUpper(strings.ReplaceAll(path, "/", `\`))
	for _, alias := range rootAliases {
		if upper == alias {
			return ""
		}
		if strings.HasPrefix(upper, alias+`\`) {
			return path[len(alias)+1:]
		}
	}
	return path
}
