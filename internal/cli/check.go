package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/cruciblehq/playground/internal/toolchain"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// Returned when any check fails. The individual failures are printed.
var errUnhealthy = errors.New("playground is not healthy")

// Represents the 'playground check' command.
type CheckCmd struct {
	SkipInstall bool `help:"Skip verifying the toolchain install against its receipt."`
}

// Executes the check command.
func (c *CheckCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	healthy := true
	report := func(name string, err error, detail string) {
		if err != nil {
			healthy = false
			fmt.Printf("FAIL  %-10s %v\n", name, err)
			return
		}
		fmt.Printf("ok    %-10s %s\n", name, detail)
	}

	if cfg.Intercepting() {
		report("routing", wrapper.CheckRouting(cfg), cfg.Wrapper())
	} else {
		report("routing", nil, "disabled (RUSTC_WRAPPER unset)")
	}

	if !c.SkipInstall {
		receipt, err := toolchain.Verify(cfg.InstallRoot())
		detail := ""
		if err == nil {
			detail = fmt.Sprintf("%s, %d files, %s", cfg.InstallRoot(), len(receipt.Entries), humanize.Bytes(uint64(receipt.Size())))
		}
		report("toolchain", err, detail)
	}

	if !healthy {
		return errUnhealthy
	}
	return nil
}
