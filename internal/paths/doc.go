// Provides the filesystem layout of the playground image and host-side
// directories used while building it.
//
// Image paths are absolute paths as seen from inside the container. When the
// pipeline runs against a root prefix (e.g. a rootfs staged in a temporary
// directory) use [Under] to translate them. Host paths follow XDG
// conventions on Linux and platform-native conventions elsewhere.
package paths
