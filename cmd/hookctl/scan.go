package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/host"
	"github.com/joshuapare/hookkit/scan"
)

func init() {
	rootCmd.AddCommand(newScanCmd())
}

var scanModule string

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <pattern>",
		Short: "Find the first match of a byte signature",
		Long: `The scan command searches a module for a byte signature written as
space-separated hex bytes with ? or ?? as wildcards. A pattern name from the
signatures table in the config may be given instead.

Example:
  hookctl scan "48 8B 05 ? ? ? ? 48 85 C0" --dump host.bin --base 0x140000000
  hookctl scan camera.manager --pid 4242 --module eurotrucks2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args)
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().StringVarP(&scanModule, "module", "m", "", "Module to scan (default target.module, else the main image)")
	return cmd
}

type scanResult struct {
	Pattern string  `json:"pattern"`
	Target  string  `json:"target"`
	Region  string  `json:"region"`
	Found   bool    `json:"found"`
	Address uintptr `json:"address,omitempty"`
	Offset  uintptr `json:"offset,omitempty"`
}

func runScan(args []string) error {
	text := args[0]
	if sig, ok := namedSignature(text); ok {
		printVerbose("Using signature %s: %s\n", text, sig)
		text = sig
	}
	p, err := scan.Parse(text)
	if err != nil {
		return err
	}

	t, err := openTarget()
	if err != nil {
		return err
	}
	defer t.close()

	module := scanModule
	if module == "" {
		module = cfg.Target.Module
	}
	region := t.modules.Main()
	if module != "" {
		r, ok := t.modules.Module(module)
		if !ok {
			return fmt.Errorf("module %q not loaded in %s", module, t.desc)
		}
		region = r
	}
	printVerbose("Scanning %s %s\n", t.desc, region)

	s := scan.New(t.mem, scan.Options{Modules: t.modules, Logger: appLog})
	res := scanResult{Pattern: p.String(), Target: t.desc, Region: region.String()}
	if addr := s.Find(region, p); addr != 0 {
		res.Found, res.Address = true, addr
		res.Offset, _ = region.Offset(addr)
	}

	if jsonOut {
		return printJSON(res)
	}
	if !res.Found {
		printInfo("%s: not found in %s\n", res.Pattern, res.Region)
		return nil
	}
	printInfo("%s: 0x%X (%s+0x%X)\n", res.Pattern, res.Address, regionName(module), res.Offset)
	return nil
}

// namedSignature resolves a signature key, preferring config overrides over
// the built-in table.
func namedSignature(name string) (string, bool) {
	key := strings.ToLower(name)
	if sig, ok := cfg.Signatures[key]; ok && sig != "" {
		return sig, true
	}
	sig, ok := host.DefaultSignatures()[key]
	return sig, ok
}

func regionName(module string) string {
	if module == "" {
		return "main"
	}
	return module
}
