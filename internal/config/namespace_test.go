package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/vpath"
)

func TestNamespaceFromProperties_Defaults(t *testing.T) {
	props := Properties{
		"mount.test.path":          "mem://t/mounts",
		"mount.test.default.mount": "mem://t/",
	}

	ns, err := NamespaceFromProperties(props, "mount.test")
	require.NoError(t, err)

	assert.Equal(t, "mount.test", ns.Prefix)
	assert.Equal(t, "mem://t/mounts", ns.Path)
	assert.Equal(t, "mem://t/", ns.DefaultMount)
	assert.Equal(t, DefaultPeriod, ns.Period)
	assert.Equal(t, DefaultDelay, ns.Delay)
	assert.False(t, ns.AutomaticUpdatesDisabled)
	assert.Equal(t, "noop", ns.FactoryClass)
	assert.Equal(t, "trusted.dir.link", ns.FactoryAttr)
	assert.Equal(t, "realPath", ns.RealField)
	assert.Equal(t, "virtualPath", ns.VirtualField)
}

func TestNamespaceFromProperties_Overrides(t *testing.T) {
	props := Properties{
		"mount.test.path":                       "mem://t/mounts",
		"mount.test.default.mount":              "mem://t/",
		"mount.test.period":                     "1500",
		"mount.test.delay":                      "0",
		"mount.test.automatic.updates.disabled": "true",
		"mount.test.mount.factory.class":        "xattr",
		"mount.test.mount.factory.attr":         "user.link",
		"mount.test.entry.real.field":           "source",
		"mount.test.entry.virtual.field":        "destination",
	}

	ns, err := NamespaceFromProperties(props, "mount.test")
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, ns.Period)
	assert.Equal(t, time.Duration(0), ns.Delay)
	assert.True(t, ns.AutomaticUpdatesDisabled)
	assert.Equal(t, "xattr", ns.FactoryClass)
	assert.Equal(t, "user.link", ns.FactoryAttr)
	assert.Equal(t, "source", ns.RealField)
	assert.Equal(t, "destination", ns.VirtualField)
}

func TestNamespaceFromProperties_Errors(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
		code  errors.ErrorCode
	}{
		{
			name:  "missing default mount",
			props: Properties{"mount.test.path": "mem://t/mounts"},
			code:  errors.ErrCodeMissingConfig,
		},
		{
			name:  "missing path with updates enabled",
			props: Properties{"mount.test.default.mount": "mem://t/"},
			code:  errors.ErrCodeMissingConfig,
		},
		{
			name: "bad period",
			props: Properties{
				"mount.test.default.mount": "mem://t/",
				"mount.test.path":          "mem://t/mounts",
				"mount.test.period":        "soon",
			},
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "negative delay",
			props: Properties{
				"mount.test.default.mount": "mem://t/",
				"mount.test.path":          "mem://t/mounts",
				"mount.test.delay":         "-5",
			},
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "zero period",
			props: Properties{
				"mount.test.default.mount": "mem://t/",
				"mount.test.path":          "mem://t/mounts",
				"mount.test.period":        "0",
			},
			code: errors.ErrCodeConfigValidation,
		},
		{
			name: "bad boolean",
			props: Properties{
				"mount.test.default.mount":              "mem://t/",
				"mount.test.automatic.updates.disabled": "maybe",
			},
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "same field names",
			props: Properties{
				"mount.test.default.mount":       "mem://t/",
				"mount.test.path":                "mem://t/mounts",
				"mount.test.entry.real.field":    "p",
				"mount.test.entry.virtual.field": "p",
			},
			code: errors.ErrCodeConfigValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NamespaceFromProperties(tt.props, "mount.test")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestNamespaceFromProperties_NoPathWhenDisabled(t *testing.T) {
	props := Properties{
		"mount.test.default.mount":              "mem://t/",
		"mount.test.automatic.updates.disabled": "true",
	}

	ns, err := NamespaceFromProperties(props, "mount.test")
	require.NoError(t, err)
	assert.Empty(t, ns.Path)
}

func TestPropertiesNamespaces(t *testing.T) {
	props := Properties{
		"mount.b.default.mount": "mem://b/",
		"mount.a.default.mount": "mem://a/",
		"mount.a.path":          "mem://a/mounts",
		"unrelated":             "x",
	}
	assert.Equal(t, []string{"mount.a", "mount.b"}, props.Namespaces())
}

func TestNamespacePrefix(t *testing.T) {
	assert.Equal(t, "mount.test", NamespacePrefix(vpath.MustParse("mount://test/a/b")))
}

func TestPropertiesGetters(t *testing.T) {
	props := Properties{"s": "  v ", "b": "false", "n": "42", "blank": "  "}

	assert.Equal(t, "v", props.GetString("s", "d"))
	assert.Equal(t, "d", props.GetString("blank", "d"))
	assert.Equal(t, "d", props.GetString("missing", "d"))

	b, err := props.GetBool("b", true)
	require.NoError(t, err)
	assert.False(t, b)

	n, err := props.GetInt64("n", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	d, err := props.GetMillis("missing", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}
