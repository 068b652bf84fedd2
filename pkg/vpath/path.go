// Package vpath implements the URI-style paths addressed by every storage
// backend and by the virtual mount namespace.
//
// A Path is a comparable value {Scheme, Authority, Path}. Two paths are equal
// when all three fields are equal, so a Path can be compared with == and used
// as a map key.
package vpath

import (
	"net/url"
	"strings"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/utils"
)

// Root is the path component sequence separator used to render roots.
const Root = utils.PathSeparator

// Path identifies an object in a storage namespace.
type Path struct {
	Scheme    string
	Authority string
	Path      string
}

// New builds a Path from its parts, cleaning the path component.
func New(scheme, authority, p string) Path {
	p = utils.CleanPath(p)
	if (scheme != "" || authority != "") && !strings.HasPrefix(p, Root) {
		p = Root + p
	}
	return Path{Scheme: scheme, Authority: authority, Path: p}
}

// Parse parses "scheme://authority/path", "scheme:///path" or a bare path.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, errors.NewError(errors.ErrCodePathInvalid, "path cannot be empty").
			WithComponent("vpath")
	}

	// Bare paths skip URL parsing so components containing ':' stay intact.
	if !strings.Contains(s, "://") {
		return New("", "", s), nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Path{}, errors.Wrap(err, errors.ErrCodePathInvalid, "cannot parse path "+s).
			WithComponent("vpath")
	}
	if u.Opaque != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return Path{}, errors.NewError(errors.ErrCodePathInvalid, "unsupported path syntax "+s).
			WithComponent("vpath")
	}

	return New(u.Scheme, u.Host, u.Path), nil
}

// MustParse is Parse for constant inputs; it panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the path in the form accepted by Parse. The path part of
// a URI is percent-escaped, so Parse(p.String()) == p.
func (p Path) String() string {
	if p.Scheme == "" && p.Authority == "" {
		return p.Path
	}
	if p.Scheme == "" {
		return "://" + p.Authority + p.Path
	}
	u := url.URL{Scheme: p.Scheme, Host: p.Authority, Path: p.Path}
	return u.String()
}

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool {
	return p == Path{}
}

// IsRoot reports whether p is the root of its namespace.
func (p Path) IsRoot() bool {
	return p.Path == Root
}

// Components splits the path part into components; the root yields [""].
func (p Path) Components() []string {
	return utils.SplitPath(p.Path)
}

// Name returns the last component, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	if i := strings.LastIndex(p.Path, Root); i >= 0 {
		return p.Path[i+1:]
	}
	return p.Path
}

// Parent returns the parent path. ok is false for the root and for a
// single relative component.
func (p Path) Parent() (parent Path, ok bool) {
	if p.Path == "" || p.IsRoot() {
		return Path{}, false
	}
	i := strings.LastIndex(p.Path, Root)
	switch {
	case i < 0:
		return Path{}, false
	case i == 0:
		return p.WithPath(Root), true
	default:
		return p.WithPath(p.Path[:i]), true
	}
}

// Join appends a relative, slash separated suffix.
func (p Path) Join(rel string) Path {
	rel = strings.Trim(utils.CleanPath(rel), Root)
	if rel == "" {
		return p
	}
	if p.Path == "" {
		return p.WithPath(rel)
	}
	if p.IsRoot() {
		return p.WithPath(Root + rel)
	}
	return p.WithPath(p.Path + Root + rel)
}

// WithPath returns a copy of p with the path part replaced.
func (p Path) WithPath(newPath string) Path {
	return Path{Scheme: p.Scheme, Authority: p.Authority, Path: newPath}
}

// Namespace returns the root path of p's scheme and authority.
func (p Path) Namespace() Path {
	return Path{Scheme: p.Scheme, Authority: p.Authority, Path: Root}
}

// SameNamespace reports whether p and other share scheme and authority.
func (p Path) SameNamespace(other Path) bool {
	return p.Scheme == other.Scheme && p.Authority == other.Authority
}
