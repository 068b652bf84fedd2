package config

import (
	"time"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Property key suffixes appended to a namespace prefix.
const (
	KeyPath                     = ".path"
	KeyPeriod                   = ".period"
	KeyDelay                    = ".delay"
	KeyAutomaticUpdatesDisabled = ".automatic.updates.disabled"
	KeyDefaultMount             = ".default.mount"
	KeyFactoryClass             = ".mount.factory.class"
	KeyFactoryAttr              = ".mount.factory.attr"
	KeyEntryRealField           = ".entry.real.field"
	KeyEntryVirtualField        = ".entry.virtual.field"
)

// Namespace defaults.
const (
	DefaultPeriod       = 300000 * time.Millisecond
	DefaultDelay        = 1000 * time.Millisecond
	DefaultFactoryClass = "noop"
	DefaultFactoryAttr  = "trusted.dir.link"
	DefaultRealField    = "realPath"
	DefaultVirtualField = "virtualPath"
)

// NamespaceConfig holds the settings of one mount namespace.
type NamespaceConfig struct {
	Prefix                   string
	Path                     string
	Period                   time.Duration
	Delay                    time.Duration
	AutomaticUpdatesDisabled bool
	DefaultMount             string
	FactoryClass             string
	FactoryAttr              string
	RealField                string
	VirtualField             string
}

// NamespacePrefix returns the property prefix of the namespace p belongs to.
func NamespacePrefix(p vpath.Path) string {
	return p.Scheme + "." + p.Authority
}

// NamespaceFromProperties reads and validates the settings under prefix.
func NamespaceFromProperties(props Properties, prefix string) (*NamespaceConfig, error) {
	ns := &NamespaceConfig{
		Prefix:       prefix,
		Path:         props.GetString(prefix+KeyPath, ""),
		DefaultMount: props.GetString(prefix+KeyDefaultMount, ""),
		FactoryClass: props.GetString(prefix+KeyFactoryClass, DefaultFactoryClass),
		FactoryAttr:  props.GetString(prefix+KeyFactoryAttr, DefaultFactoryAttr),
		RealField:    props.GetString(prefix+KeyEntryRealField, DefaultRealField),
		VirtualField: props.GetString(prefix+KeyEntryVirtualField, DefaultVirtualField),
	}

	var err error
	if ns.Period, err = props.GetMillis(prefix+KeyPeriod, DefaultPeriod); err != nil {
		return nil, err
	}
	if ns.Delay, err = props.GetMillis(prefix+KeyDelay, DefaultDelay); err != nil {
		return nil, err
	}
	if ns.AutomaticUpdatesDisabled, err = props.GetBool(prefix+KeyAutomaticUpdatesDisabled, false); err != nil {
		return nil, err
	}

	if err := ns.Validate(); err != nil {
		return nil, err
	}
	return ns, nil
}

// Validate checks the namespace settings for consistency.
func (ns *NamespaceConfig) Validate() error {
	if ns.DefaultMount == "" {
		return errors.NewError(errors.ErrCodeMissingConfig, "default mount is required").
			WithDetail("key", ns.Prefix+KeyDefaultMount)
	}
	if _, err := vpath.Parse(ns.DefaultMount); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid default mount").
			WithDetail("key", ns.Prefix+KeyDefaultMount)
	}
	if ns.Path == "" && !ns.AutomaticUpdatesDisabled {
		return errors.NewError(errors.ErrCodeMissingConfig, "mount table path is required unless automatic updates are disabled").
			WithDetail("key", ns.Prefix+KeyPath)
	}
	if ns.Path != "" {
		if _, err := vpath.Parse(ns.Path); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid mount table path").
				WithDetail("key", ns.Prefix+KeyPath)
		}
	}
	if !ns.AutomaticUpdatesDisabled && ns.Period <= 0 {
		return errors.NewError(errors.ErrCodeConfigValidation, "reload period must be greater than 0").
			WithDetail("key", ns.Prefix+KeyPeriod)
	}
	if ns.RealField == ns.VirtualField {
		return errors.NewError(errors.ErrCodeConfigValidation, "entry field names must differ")
	}
	return nil
}
