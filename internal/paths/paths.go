package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for host directory naming.
	programName = "playground"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Default permission mode for executables.
	DefaultExecMode os.FileMode = 0755
)

// Image layout.
const (

	// Installation root of the toolchain artifact set.
	InstallRoot = "/usr/local/prusti"

	// Directory on the executable search path holding the launchers.
	BinDir = "/usr/local/bin"

	// In-image location of the playground binary itself.
	Binary = BinDir + "/playground"

	// Scaffold directory, also the runtime working directory.
	ScaffoldDir = "/playground"

	// Persisted environment configuration.
	EnvFile = "/etc/playground/environment"

	// Where the image builder stages toolchain artifacts before installing.
	StagingDir = "/tmp/playground-artifacts"
)

// Joins an image path onto a root prefix.
//
// An empty or "/" root returns the path unchanged.
func Under(root, path string) string {
	if root == "" || root == "/" {
		return path
	}
	return filepath.Join(root, path)
}

// Default host directory for image build output.
//
//	Linux:   $XDG_STATE_HOME/playground/images
//	macOS:   ~/Library/Application Support/playground/images
func Images() string {
	return filepath.Join(xdg.StateHome, programName, "images")
}
