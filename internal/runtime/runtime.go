package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
)

const (

	// Namespace used when Options leaves it empty.
	DefaultNamespace = "playground"

	// Snapshotter used when Options leaves it empty.
	DefaultSnapshotter = "overlayfs"

	// OCI runtime shim for build containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Connection settings.
type Options struct {
	Address     string // Path of the containerd socket.
	Namespace   string // Containerd namespace. Defaults to DefaultNamespace.
	Snapshotter string // Snapshotter for container filesystems. Defaults to DefaultSnapshotter.
}

// Containerd client scoped to one namespace.
type Runtime struct {
	client      *containerd.Client
	snapshotter string
}

// Connects to containerd. The runtime must be closed after use.
func Connect(opts Options) (*Runtime, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	sn := opts.Snapshotter
	if sn == "" {
		sn = DefaultSnapshotter
	}

	client, err := containerd.New(opts.Address, containerd.WithDefaultNamespace(ns))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client, snapshotter: sn}, nil
}

// Closes the client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a build container from the image in the OCI archive at path.
//
// The archive is imported and tagged under a name derived from its path,
// then unpacked for platform. A container left over from an earlier build
// with the same id is removed first. The container's primary process idles
// until the container is stopped.
func (rt *Runtime) Launch(ctx context.Context, path, id, platform string) (*Container, error) {
	if platform == "" {
		platform = DefaultPlatform()
	}
	ref := archiveRef(path)

	imported, err := rt.importArchive(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: import %s: %w", ErrRuntime, path, err)
	}
	if err := rt.tag(ctx, imported, ref); err != nil {
		return nil, fmt.Errorf("%w: tag %s: %w", ErrRuntime, ref, err)
	}

	image, err := rt.image(ctx, ref, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := image.Unpack(ctx, rt.snapshotter); err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", ErrRuntime, ref, err)
	}

	c := &Container{
		client:      rt.client,
		id:          id,
		platform:    platform,
		snapshotter: rt.snapshotter,
	}
	c.remove(ctx)

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrRuntime, id, err)
	}
	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: start %s: %w", ErrRuntime, id, err)
	}

	slog.Debug("build container started", "id", id, "image", ref, "platform", platform)
	return c, nil
}

// Imports the single image contained in an OCI archive.
//
// A multi-platform archive still holds one image (an index); the platform
// manifest is chosen later. Archives holding several images are rejected.
func (rt *Runtime) importArchive(ctx context.Context, path string) (images.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer f.Close()

	imported, err := rt.client.Import(ctx, f)
	if err != nil {
		return images.Image{}, err
	}

	switch len(imported) {
	case 0:
		return images.Image{}, ErrEmptyArchive
	case 1:
		return imported[0], nil
	default:
		return images.Image{}, ErrMultipleImages
	}
}

// Points ref at the imported image, replacing an earlier target. The record
// created by the import is dropped when its name differs.
func (rt *Runtime) tag(ctx context.Context, imported images.Image, ref string) error {
	is := rt.client.ImageService()
	img := images.Image{Name: ref, Target: imported.Target}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if imported.Name != ref {
		_ = is.Delete(ctx, imported.Name)
	}
	return nil
}

// Returns the image tagged ref, restricted to platform.
func (rt *Runtime) image(ctx context.Context, ref, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

// Returns the platform of the host, e.g. "linux/amd64".
func DefaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}

// Derives a valid image reference from an archive path.
func archiveRef(path string) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("playground/base-%s:latest", hex.EncodeToString(sum[:8]))
}
