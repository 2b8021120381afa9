// Package pathmatch compiles the source globs used by the copy and watch stages.
//
// Patterns use forward slashes regardless of platform. A "**/" segment also
// matches zero directories, so "app/**/*.png" matches both "app/a.png" and
// "app/x/y/a.png".
package pathmatch

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var extPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// Glob is a compiled pattern plus the static directory it is rooted at.
type Glob struct {
	pattern string
	base    string
	globs   []glob.Glob
}

// Compile compiles pattern.
func Compile(pattern string) (*Glob, error) {
	p := Normalize(pattern)
	if p == "" || p == "." {
		return nil, fmt.Errorf("empty glob pattern %q", pattern)
	}
	variants := expandGlobstar(p)
	globs := make([]glob.Glob, 0, len(variants))
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return &Glob{pattern: p, base: staticBase(p), globs: globs}, nil
}

// expandGlobstar rewrites every "**/" segment into the two patterns it stands
// for: no directory at all, or one or more directories.
func expandGlobstar(p string) []string {
	i := strings.Index(p, "**/")
	if i < 0 {
		return []string{p}
	}
	head := p[:i]
	var out []string
	for _, tail := range expandGlobstar(p[i+len("**/"):]) {
		out = append(out, head+tail, head+"**/"+tail)
	}
	return out
}

// MustCompile is Compile that panics on error. Use it for patterns built from constants.
func MustCompile(pattern string) *Glob {
	g, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return g
}

// Match reports whether p matches the pattern.
func (g *Glob) Match(p string) bool {
	n := Normalize(p)
	for _, v := range g.globs {
		if v.Match(n) {
			return true
		}
	}
	return false
}

// Base is the longest leading directory of the pattern without wildcards;
// it is the directory a watcher has to observe.
func (g *Glob) Base() string { return g.base }

func (g *Glob) String() string { return g.pattern }

// Normalize converts p to a cleaned slash path without a leading "./".
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

func staticBase(p string) string {
	segs := strings.Split(p, "/")
	var out []string
	for _, s := range segs {
		if strings.ContainsAny(s, `*?[{\`) {
			break
		}
		out = append(out, s)
	}
	if len(out) == len(segs) {
		// No wildcard: the pattern names a file, watch its directory.
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "."
	}
	if len(out) == 1 && out[0] == "" {
		return "/"
	}
	return strings.Join(out, "/")
}

// ParseExcludes splits an extension alternation such as "js|css|scss".
// An empty string excludes nothing.
func ParseExcludes(alternation string) ([]string, error) {
	alternation = strings.TrimSpace(alternation)
	if alternation == "" {
		return nil, nil
	}
	parts := strings.Split(alternation, "|")
	exts := make([]string, 0, len(parts))
	for _, part := range parts {
		ext := strings.TrimPrefix(strings.TrimSpace(part), ".")
		if !extPattern.MatchString(ext) {
			return nil, fmt.Errorf("invalid extension %q in exclude pattern %q", part, alternation)
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// Resources selects every file with an extension under a root, minus the
// files whose extension is excluded.
type Resources struct {
	root     string
	include  *Glob
	exclude  *Glob
	excludes []string
}

// NewResources builds the selection "<root>/**/*.*" minus "<root>/**/*.{excludes}".
func NewResources(root, excludes string) (*Resources, error) {
	exts, err := ParseExcludes(excludes)
	if err != nil {
		return nil, err
	}
	root = Normalize(root)
	if root == "" {
		return nil, fmt.Errorf("empty resource root")
	}
	r := &Resources{root: root, excludes: exts}
	quoted := glob.QuoteMeta(root)
	if r.include, err = Compile(quoted + "/**/*.*"); err != nil {
		return nil, err
	}
	if len(exts) > 0 {
		var alt string
		if len(exts) == 1 {
			alt = exts[0]
		} else {
			alt = "{" + strings.Join(exts, ",") + "}"
		}
		if r.exclude, err = Compile(quoted + "/**/*." + alt); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Root returns the normalized resource root.
func (r *Resources) Root() string { return r.root }

// Match reports whether p is a resource: included and not excluded.
func (r *Resources) Match(p string) bool {
	return r.include.Match(p) && !r.Excluded(p)
}

// Excluded reports whether p carries an excluded extension.
func (r *Resources) Excluded(p string) bool {
	return r.exclude != nil && r.exclude.Match(p)
}

// Rel returns p relative to the root, or false when p lies outside it.
func (r *Resources) Rel(p string) (string, bool) {
	n := Normalize(p)
	if r.root == "." {
		return n, !strings.HasPrefix(n, "../") && n != ".."
	}
	prefix := r.root + "/"
	if r.root == "/" {
		prefix = "/"
	}
	if !strings.HasPrefix(n, prefix) {
		return "", false
	}
	return strings.TrimPrefix(n, prefix), true
}

func (r *Resources) String() string {
	if r.exclude == nil {
		return r.include.String()
	}
	return r.include.String() + " !" + r.exclude.String()
}
