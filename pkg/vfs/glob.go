package vfs

import (
	"path"
	"sort"
	"strings"
)

// GlobOptions adjusts pathname expansion.
type GlobOptions struct {
	DotGlob bool // wildcards match a leading dot
	NoCase  bool
}

// HasMeta reports whether pat contains unescaped glob syntax.
func HasMeta(pat string) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		case '@', '+', '!':
			if i+1 < len(pat) && pat[i+1] == '(' {
				return true
			}
		}
	}
	return false
}

// Unescape removes the backslash quoting from a pattern with no meta
// characters.
func Unescape(pat string) string {
	if !strings.Contains(pat, "\\") {
		return pat
	}
	var b strings.Builder
	for i := 0; i < len(pat); i++ {
		if pat[i] == '\\' && i+1 < len(pat) {
			i++
		}
		b.WriteByte(pat[i])
	}
	return b.String()
}

// GlobWith expands a pattern against fsys. Matches keep the pattern's form:
// relative patterns yield paths relative to cwd. No match yields no
// results and no error.
func GlobWith(fsys FS, pat, cwd string, opts GlobOptions) ([]string, error) {
	if !HasMeta(pat) {
		return nil, nil
	}
	abs := strings.HasPrefix(pat, "/")
	parts := strings.Split(strings.TrimLeft(pat, "/"), "/")
	prefix := ""
	if abs {
		prefix = "/"
	}
	results := []string{prefix}
	for i, part := range parts {
		last := i == len(parts)-1
		if part == "" {
			// a trailing slash keeps only directories
			var dirs []string
			for _, r := range results {
				if fsys.IsDir(resolveMatch(cwd, r)) {
					dirs = append(dirs, r)
				}
			}
			results = dirs
			continue
		}
		var next []string
		for _, r := range results {
			dir := resolveMatch(cwd, r)
			if !HasMeta(part) {
				cand := join(r, Unescape(part))
				if (last && fsys.Exists(resolveMatch(cwd, cand))) || (!last && fsys.IsDir(resolveMatch(cwd, cand))) {
					next = append(next, cand)
				}
				continue
			}
			if !fsys.IsDir(dir) {
				continue
			}
			re, err := CompilePattern(part, opts.NoCase)
			if err != nil {
				return nil, err
			}
			names, err := fsys.ReadDir(dir)
			if err != nil {
				continue
			}
			explicitDot := strings.HasPrefix(part, ".") || strings.HasPrefix(part, "\\.")
			for _, name := range names {
				if strings.HasPrefix(name, ".") && !explicitDot && !opts.DotGlob {
					continue
				}
				if !re.Match(name) {
					continue
				}
				cand := join(r, name)
				if !last && !fsys.IsDir(resolveMatch(cwd, cand)) {
					continue
				}
				next = append(next, cand)
			}
		}
		results = next
		if len(results) == 0 {
			return nil, nil
		}
	}
	if strings.HasSuffix(pat, "/") {
		for i := range results {
			results[i] += "/"
		}
	}
	sort.Strings(results)
	return results, nil
}

func join(prefix, name string) string {
	switch prefix {
	case "":
		return name
	case "/":
		return "/" + name
	}
	return prefix + "/" + name
}

func resolveMatch(cwd, p string) string {
	if p == "" {
		return path.Clean("/" + cwd)
	}
	return ResolvePath(cwd, p)
}
