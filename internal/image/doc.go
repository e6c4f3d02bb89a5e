// Package image builds the playground OCI image with containerd.
//
// The build starts a container from a base image archive, copies the
// playground binary and the toolchain artifacts in, and runs
// "playground assemble" inside it with the image configuration in its
// environment. The staged artifacts are removed and the container's
// filesystem is exported as a new image whose entrypoint is the playground
// entrypoint command.
//
// Any failure aborts the build and no archive is written. The build
// container is destroyed whether the build succeeds or not.
package image
