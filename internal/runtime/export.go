package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/containerd/containerd/v2/core/containers"
	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/containerd/v2/pkg/rootfs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Runtime settings written into the exported image config. Empty fields
// keep the base image's value.
type ImageConfig struct {
	Entrypoint []string          // Replaces the entrypoint and clears Cmd.
	Cmd        []string          // Default arguments to the entrypoint.
	Env        []string          // Overlaid on the base image environment.
	WorkingDir string            // Initial working directory.
	User       string            // Default user.
	Labels     map[string]string // Merged into the base image labels.
}

// Applies the settings to an OCI image config.
func (ic ImageConfig) apply(cfg *ocispec.ImageConfig) {
	if len(ic.Entrypoint) > 0 {
		cfg.Entrypoint = ic.Entrypoint
		cfg.Cmd = nil
	}
	if len(ic.Cmd) > 0 {
		cfg.Cmd = ic.Cmd
	}
	if len(ic.Env) > 0 {
		cfg.Env = overlayEnv(cfg.Env, ic.Env)
	}
	if ic.WorkingDir != "" {
		cfg.WorkingDir = ic.WorkingDir
	}
	if ic.User != "" {
		cfg.User = ic.User
	}
	if len(ic.Labels) > 0 {
		if cfg.Labels == nil {
			cfg.Labels = make(map[string]string, len(ic.Labels))
		}
		maps.Copy(cfg.Labels, ic.Labels)
	}
}

// Commits the container's filesystem diff as a new layer and writes the
// resulting image, configured by ic, as an OCI archive at path.
//
// The archive is written next to path and renamed into place, so path only
// ever holds a complete image. The image record the container was created
// from is left unchanged; the new manifest and config exist as blobs held
// by a lease for the duration of the export.
func (c *Container) Export(ctx context.Context, path string, ic ImageConfig) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	info, err := ctr.Info(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	layer, diffID, err := c.diff(ctx, info)
	if err != nil {
		return fmt.Errorf("%w: diff: %w", ErrRuntime, err)
	}

	ctx, release, err := c.client.WithLease(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer release(context.Background())

	target, err := c.commit(ctx, info.Image, func(m *ocispec.Manifest, img *ocispec.Image) {
		m.Layers = append(m.Layers, layer)
		img.RootFS.DiffIDs = append(img.RootFS.DiffIDs, diffID)
		ic.apply(&img.Config)
	})
	if err != nil {
		return fmt.Errorf("%w: commit: %w", ErrRuntime, err)
	}

	if err := c.writeArchive(ctx, target, info.Image, path); err != nil {
		return fmt.Errorf("%w: export: %w", ErrRuntime, err)
	}

	slog.Info("image exported", "path", path, "layer", layer.Digest)
	return nil
}

// Diffs the container snapshot against its parent.
func (c *Container) diff(ctx context.Context, info containers.Container) (ocispec.Descriptor, digest.Digest, error) {
	layer, err := rootfs.CreateDiff(ctx,
		info.SnapshotKey,
		c.client.SnapshotService(info.Snapshotter),
		c.client.DiffService(),
	)
	if err != nil {
		return ocispec.Descriptor{}, "", err
	}

	diffID, err := images.GetDiffID(ctx, c.client.ContentStore(), layer)
	if err != nil {
		return ocispec.Descriptor{}, "", err
	}
	return layer, diffID, nil
}

func (c *Container) writeArchive(ctx context.Context, target ocispec.Descriptor, name, path string) error {
	p, err := platforms.Parse(c.platform)
	if err != nil {
		return err
	}

	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	err = c.client.Export(ctx, f,
		archive.WithManifest(target, name),
		archive.WithPlatform(platforms.Only(p)),
	)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Writes a mutated copy of the named image's platform manifest and config,
// and returns the descriptor to export.
//
// When the image is an index, the result is a new index listing only the
// mutated manifest, since layers of other platforms were never unpacked.
func (c *Container) commit(ctx context.Context, name string, mutate func(*ocispec.Manifest, *ocispec.Image)) (ocispec.Descriptor, error) {
	img, err := c.client.ImageService().Get(ctx, name)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	desc, index, err := c.platformManifest(ctx, img.Target, name)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	var manifest ocispec.Manifest
	if err := c.readJSON(ctx, desc, &manifest); err != nil {
		return ocispec.Descriptor{}, err
	}
	var config ocispec.Image
	if err := c.readJSON(ctx, manifest.Config, &config); err != nil {
		return ocispec.Descriptor{}, err
	}

	mutate(&manifest, &config)

	manifest.Config, err = c.writeJSON(ctx, manifest.Config.MediaType, config, name+"-config")
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	mdesc, err := c.writeJSON(ctx, desc.MediaType, manifest, name+"-manifest", content.WithLabels(manifestGCLabels(manifest)))
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	if index == nil {
		return mdesc, nil
	}
	index.Manifests = []ocispec.Descriptor{mdesc}
	return c.writeJSON(ctx, img.Target.MediaType, index, name+"-index", content.WithLabels(indexGCLabels(*index)))
}

// Resolves root to the manifest for the container's platform. The index is
// returned when root is one.
//
// Index entries without platform metadata are matched through the platform
// recorded in their image config.
func (c *Container) platformManifest(ctx context.Context, root ocispec.Descriptor, name string) (ocispec.Descriptor, *ocispec.Index, error) {
	if !images.IsIndexType(root.MediaType) {
		return root, nil, nil
	}

	var idx ocispec.Index
	if err := c.readJSON(ctx, root, &idx); err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	if len(idx.Manifests) == 0 {
		return ocispec.Descriptor{}, nil, fmt.Errorf("%w: %s", ErrEmptyIndex, name)
	}

	p, err := platforms.Parse(c.platform)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	match := platforms.OnlyStrict(p)

	for _, m := range idx.Manifests {
		if m.Platform != nil && match.Match(*m.Platform) {
			return m, &idx, nil
		}
	}
	for _, m := range idx.Manifests {
		if m.Platform != nil || !images.IsManifestType(m.MediaType) {
			continue
		}
		if cp, ok := c.configPlatform(ctx, m); ok && match.Match(cp) {
			return m, &idx, nil
		}
	}

	slog.Warn("no manifest matches platform, using the first", "image", name, "platform", c.platform)
	return idx.Manifests[0], &idx, nil
}

func (c *Container) configPlatform(ctx context.Context, desc ocispec.Descriptor) (ocispec.Platform, bool) {
	var manifest ocispec.Manifest
	if err := c.readJSON(ctx, desc, &manifest); err != nil {
		return ocispec.Platform{}, false
	}
	var config ocispec.Image
	if err := c.readJSON(ctx, manifest.Config, &config); err != nil {
		return ocispec.Platform{}, false
	}
	return ocispec.Platform{
		OS:           config.OS,
		Architecture: config.Architecture,
		Variant:      config.Variant,
	}, true
}

func (c *Container) readJSON(ctx context.Context, desc ocispec.Descriptor, v any) error {
	b, err := content.ReadBlob(ctx, c.client.ContentStore(), desc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *Container) writeJSON(ctx context.Context, mediaType string, v any, ref string, opts ...content.Opt) (ocispec.Descriptor, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(b),
		Size:      int64(len(b)),
	}
	if err := content.WriteBlob(ctx, c.client.ContentStore(), ref, bytes.NewReader(b), desc, opts...); err != nil {
		return ocispec.Descriptor{}, err
	}
	return desc, nil
}

// Labels that let the containerd garbage collector reach a manifest's
// config and layers.
func manifestGCLabels(m ocispec.Manifest) map[string]string {
	labels := map[string]string{
		"containerd.io/gc.ref.content.config": m.Config.Digest.String(),
	}
	for i, l := range m.Layers {
		labels[fmt.Sprintf("containerd.io/gc.ref.content.l.%d", i)] = l.Digest.String()
	}
	return labels
}

// Labels that let the containerd garbage collector reach an index's
// manifests.
func indexGCLabels(idx ocispec.Index) map[string]string {
	labels := make(map[string]string, len(idx.Manifests))
	for i, m := range idx.Manifests {
		labels[fmt.Sprintf("containerd.io/gc.ref.content.m.%d", i)] = m.Digest.String()
	}
	return labels
}
