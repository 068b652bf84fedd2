//go:build linux

package local

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/objectfs/mountfs/pkg/types"
)

func getxattr(name, attr string) ([]byte, error) {
	for {
		size, err := unix.Getxattr(name, attr, nil)
		if err != nil {
			return nil, xattrError("getxattr", name, attr, err)
		}
		buf := make([]byte, size)
		n, err := unix.Getxattr(name, attr, buf)
		if err == unix.ERANGE {
			// Grew between the two calls.
			continue
		}
		if err != nil {
			return nil, xattrError("getxattr", name, attr, err)
		}
		return buf[:n], nil
	}
}

func setxattr(name, attr string, value []byte) error {
	if err := unix.Setxattr(name, attr, value, 0); err != nil {
		return xattrError("setxattr", name, attr, err)
	}
	return nil
}

func xattrError(op, name, attr string, err error) error {
	switch err {
	case unix.ENODATA:
		return fmt.Errorf("%s %s %s: %w", op, name, attr, types.ErrAttrNotFound)
	case unix.ENOTSUP:
		return fmt.Errorf("%s %s %s: %w", op, name, attr, types.ErrAttrNotSupported)
	default:
		return fmt.Errorf("%s %s %s: %w", op, name, attr, err)
	}
}
