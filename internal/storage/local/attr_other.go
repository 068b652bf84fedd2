//go:build !linux

package local

import (
	"fmt"

	"github.com/objectfs/mountfs/pkg/types"
)

func getxattr(name, attr string) ([]byte, error) {
	return nil, fmt.Errorf("getxattr %s %s: %w", name, attr, types.ErrAttrNotSupported)
}

func setxattr(name, attr string, value []byte) error {
	return fmt.Errorf("setxattr %s %s: %w", name, attr, types.ErrAttrNotSupported)
}
