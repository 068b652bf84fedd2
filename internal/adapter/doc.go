/*
Package adapter is the composition root of mountfs. It turns one
configuration into a running set of components and owns their lifecycle.

# Components

	┌──────────────────────────────────────────────┐
	│            CLI / FUSE view / callers         │
	└──────────────────────────────────────────────┘
	                       │
	┌──────────────────────────────────────────────┐
	│   MountFileSystem (mount://)                 │ ← path contexts
	│   mount.Registry → one Manager per namespace │ ← resolution tiers
	└──────────────────────────────────────────────┘
	        │                 │              │
	┌───────┴─────┐ ┌─────────┴──┐ ┌─────────┴────┐
	│ file://     │ │ mem://     │ │ s3://        │
	│ local disk  │ │ avfs memfs │ │ aws-sdk-go-v2│
	└─────────────┘ └────────────┘ └──────────────┘

Shared by every namespace: the storage registry, the factory registry, one
scheduler running the periodic mount table reloads, and the metrics
collector.

# Lifecycle

Startup:
 1. Configuration validation, including every declared namespace
 2. Metrics collector creation
 3. Storage backends registration (S3 unless disabled)
 4. Factory registry, scheduler and mount registry creation
 5. Start: metrics endpoint, one manager per namespace, first table load

Shutdown:
 1. FUSE views unmounted
 2. Managers closed, scheduler stopped
 3. Metrics endpoint stopped

A table that fails to load at startup is logged; the namespace keeps
resolving through its other tiers until a later reload succeeds.

# Usage

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile("mountfs.yaml"); err != nil {
		return err
	}
	a, err := adapter.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop(ctx)

	real, err := a.MountFS().RealPath(ctx, vpath.MustParse("mount://projects/alpha/report.txt"))
*/
package adapter
