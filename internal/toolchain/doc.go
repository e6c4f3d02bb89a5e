// Package toolchain installs the prebuilt verifier artifacts into a fixed
// installation root.
//
// Installation is all-or-nothing. Every artifact is checked before anything
// is written, the set is copied into a staging directory next to the root,
// and the staging directory is swapped into place only after every copy
// succeeded. A failed install leaves the previous root (if any) untouched.
//
// Each install writes a receipt listing every file with its SHA-256 digest.
// Receipts carry no timestamps, so installing the same artifact set twice
// produces a byte-identical root; the second install detects the match and
// skips the swap.
//
//	inst := toolchain.Installer{
//	    Source:    "target/release",
//	    Root:      "/usr/local/prusti",
//	    Artifacts: toolchain.DefaultArtifacts,
//	}
//	receipt, err := inst.Install(ctx)
package toolchain
