// Holds the environment configuration shared by every process in the
// playground container.
//
// A [Config] is built once from a process environment with [FromEnviron] and
// is read-only afterwards. Components receive it explicitly as an argument;
// nothing below the command layer reads os.Getenv directly.
//
// The configuration is persisted as a dotenv file during image assembly and
// merged back under the process environment by the entrypoint, so values set
// by the container runtime at launch take precedence over the baked ones.
//
//	cfg, err := settings.FromEnviron(os.Environ())
//	if err != nil {
//	    return err
//	}
//	cmd.Env = append(os.Environ(), cfg.Environ()...)
package settings
