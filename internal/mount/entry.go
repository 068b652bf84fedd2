package mount

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/objectfs/mountfs/pkg/vpath"
)

// EntryCodec encodes mount table records: one JSON object per line holding
// exactly two string fields, the real and the virtual root.
type EntryCodec struct {
	RealField    string
	VirtualField string
}

// DefaultEntryCodec uses the field names realPath and virtualPath.
func DefaultEntryCodec() EntryCodec {
	return EntryCodec{RealField: "realPath", VirtualField: "virtualPath"}
}

// Encode renders one record, real field first.
func (c EntryCodec) Encode(m *PathRewrite) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range [][2]string{
		{c.RealField, m.RealRoot().String()},
		{c.VirtualField, m.VirtualRoot().String()},
	} {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv[1])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode parses one record.
func (c EntryCodec) Decode(line []byte) (*PathRewrite, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("record is not an object")
	}
	for name := range fields {
		if name != c.RealField && name != c.VirtualField {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}

	realRoot, err := c.field(fields, c.RealField)
	if err != nil {
		return nil, err
	}
	virtualRoot, err := c.field(fields, c.VirtualField)
	if err != nil {
		return nil, err
	}
	return NewPathRewrite(realRoot, virtualRoot), nil
}

func (c EntryCodec) field(fields map[string]json.RawMessage, name string) (vpath.Path, error) {
	raw, ok := fields[name]
	if !ok {
		return vpath.Path{}, fmt.Errorf("missing field %q", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return vpath.Path{}, fmt.Errorf("field %q: %w", name, err)
	}
	p, err := vpath.Parse(s)
	if err != nil {
		return vpath.Path{}, fmt.Errorf("field %q: %w", name, err)
	}
	return p, nil
}
