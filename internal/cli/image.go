package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cruciblehq/playground/internal"
	"github.com/cruciblehq/playground/internal/image"
	"github.com/cruciblehq/playground/internal/runtime"
	"github.com/cruciblehq/playground/internal/settings"
)

// Represents the 'playground image' command.
type ImageCmd struct {
	Base     string `help:"OCI archive of the base image." required:"" type:"existingfile"`
	Source   string `help:"Directory holding the toolchain artifacts." required:"" type:"existingdir"`
	Output   string `short:"o" help:"Path of the image archive to write." default:"${images}/playground.tar" type:"path"`
	Binary   string `help:"Playground binary for the target platform (default: this executable)." type:"existingfile"`
	Platform string `help:"Target platform, e.g. linux/amd64 (default: host)."`

	Wrapper         string `help:"Compiler wrapper baked into the image. Empty disables interception." default:"${wrapper}"`
	FullCompilation bool   `help:"Compile after successful verification." default:"true" negatable:""`
	EncodeUnsigned  bool   `help:"Encode unsigned integer constraints in the verifier." default:"true" negatable:""`
	LogLevel        string `help:"Verifier log level baked into the image." default:"warn" enum:"error,warn,info,debug,trace"`
	User            string `help:"Session user of the image (default: image default)."`
	InstallRoot     string `help:"Toolchain installation root inside the image." default:"${installRoot}"`

	Address     string `help:"Containerd socket." default:"${containerd}" env:"CONTAINERD_ADDRESS"`
	Namespace   string `help:"Containerd namespace." default:"playground" env:"CONTAINERD_NAMESPACE"`
	Snapshotter string `help:"Containerd snapshotter." default:"overlayfs" env:"CONTAINERD_SNAPSHOTTER"`
}

// Executes the image command.
func (c *ImageCmd) Run(ctx context.Context) error {
	level, err := settings.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	cfg, err := settings.New(settings.Options{
		Wrapper:         c.Wrapper,
		FullCompilation: c.FullCompilation,
		EncodeUnsigned:  c.EncodeUnsigned,
		LogLevel:        level,
		User:            c.User,
		InstallRoot:     c.InstallRoot,
	})
	if err != nil {
		return err
	}

	binary := c.Binary
	if binary == "" {
		if binary, err = os.Executable(); err != nil {
			return fmt.Errorf("locate playground binary: %w", err)
		}
	}

	rt, err := runtime.Connect(runtime.Options{
		Address:     c.Address,
		Namespace:   c.Namespace,
		Snapshotter: c.Snapshotter,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := image.Build(ctx, rt, image.Options{
		Base:     c.Base,
		Output:   c.Output,
		Source:   c.Source,
		Binary:   binary,
		Platform: c.Platform,
		Config:   cfg,
		Debug:    internal.IsDebug(),
	})
	if err != nil {
		return err
	}

	fmt.Println(res.Output)
	return nil
}
