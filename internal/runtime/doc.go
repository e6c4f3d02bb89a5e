// Package runtime drives the containerd build container used to assemble
// the playground image.
//
// A [Runtime] holds the containerd client. [Runtime.Launch] imports a base
// OCI archive, unpacks it for the requested platform and starts a container
// whose primary task idles, so commands can be attached to it with
// [Container.Run]. Files enter the container as tar streams. When the build
// is done, [Container.Export] commits the container's filesystem diff as a
// new layer and writes an OCI archive whose image config carries the
// playground entrypoint, environment, working directory and user.
//
//	rt, err := runtime.Connect(runtime.Options{Address: "/run/containerd/containerd.sock"})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.Launch(ctx, "base.tar", "playground-build", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
package runtime
