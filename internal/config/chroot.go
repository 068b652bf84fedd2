package config

import (
	"sort"
	"strings"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// ChrootScheme is the scheme of chroot views.
const ChrootScheme = "chroot"

// KeyChrootFS is the key suffix holding the real root of a chroot view.
const KeyChrootFS = ".fs"

// ChrootConfig holds the settings of one chroot view, configured under the
// prefix "chroot.<authority>".
type ChrootConfig struct {
	Prefix string
	Root   string
}

// Chroots returns the sorted prefixes that declare a chroot root.
func (p Properties) Chroots() []string {
	var out []string
	for key := range p {
		prefix, ok := strings.CutSuffix(key, KeyChrootFS)
		if !ok {
			continue
		}
		if authority, ok := strings.CutPrefix(prefix, ChrootScheme+"."); ok && authority != "" {
			out = append(out, prefix)
		}
	}
	sort.Strings(out)
	return out
}

// ChrootFromProperties reads and validates the chroot view under prefix.
func ChrootFromProperties(props Properties, prefix string) (*ChrootConfig, error) {
	c := &ChrootConfig{
		Prefix: prefix,
		Root:   props.GetString(prefix+KeyChrootFS, ""),
	}
	if c.Root == "" {
		return nil, errors.NewError(errors.ErrCodeMissingConfig, "chroot root is required").
			WithDetail("key", prefix+KeyChrootFS)
	}
	root, err := vpath.Parse(c.Root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid chroot root").
			WithDetail("key", prefix+KeyChrootFS)
	}
	if root.Scheme == ChrootScheme {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "chroot root cannot be another chroot").
			WithDetail("key", prefix+KeyChrootFS)
	}
	return c, nil
}

// Authority returns the authority the view is served under.
func (c *ChrootConfig) Authority() string {
	return strings.TrimPrefix(c.Prefix, ChrootScheme+".")
}
