/*
Package fuse exposes one virtual mount namespace as a local directory through
the kernel FUSE driver.

The view is read-only. Every kernel request is answered from the mount
file system, so a path seen under the mount point resolves through the same
explicit, reloadable, dynamic and default mounts as any other caller:

	/mnt/projects/alpha/report.txt
	      │
	      ▼
	mount://projects/alpha/report.txt   (virtual path)
	      │  mount manager
	      ▼
	s3://bucket/teams/alpha/report.txt  (real path)

# Operations

Directory nodes answer lookup, readdir and getattr. File nodes answer
getattr and open; open handles answer read and release. Requests that would
modify the tree fail with EROFS.

Errors map onto errno values:
  - not found and out-of-scope paths: ENOENT
  - permission denied: EACCES
  - anything else: EIO

# Usage

	view := fuse.NewFileSystem(mountFS, vpath.MustParse("mount://projects/"), nil, metrics, logger)
	mgr := fuse.NewMountManager(view, &fuse.MountConfig{MountPoint: "/mnt/projects"}, logger)
	if err := mgr.Mount(ctx); err != nil {
		return err
	}
	defer mgr.Unmount()
	mgr.Wait()

Mount changes made while the view is mounted become visible once the
kernel's entry and attribute caches expire.
*/
package fuse
