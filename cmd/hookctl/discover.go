package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/host"
)

func init() {
	rootCmd.AddCommand(newDiscoverCmd())
}

var discoverTicks int

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run offset discovery and report every unit",
		Long: `The discover command runs the camera and vehicle discovery units against
the target, ticking until every critical unit is ready or the tick budget is
spent, and prints what resolved. No hooks are installed.

Example:
  hookctl discover --dump host.bin --base 0x140000000
  hookctl discover --pid 4242 --ticks 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover()
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().IntVarP(&discoverTicks, "ticks", "t", 1, "Maximum number of discovery ticks")
	return cmd
}

func runDiscover() error {
	t, err := openTarget()
	if err != nil {
		return err
	}
	defer t.close()

	opts := host.ConfigOptions(cfg)
	opts.Memory, opts.Modules, opts.Logger = readOnly{t.mem}, t.modules, appLog
	s, err := host.NewSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	for i := 0; i < max(discoverTicks, 1); i++ {
		if s.Tick() && allReady(s.Status()) {
			break
		}
	}
	st := s.Status()

	if jsonOut {
		return printJSON(st)
	}

	printInfo("Target: %s\n", t.desc)
	printInfo("Ticks: %d  Scans: %d  Ready: %v\n", st.Ticks, st.Scans, st.Ready)
	for _, r := range st.Registries {
		printInfo("\n%s (critical ready: %v, all ready: %v)\n", r.Name, r.CriticalReady, r.AllReady)
		for _, u := range r.Units {
			mark := "✗"
			if u.Ready {
				mark = "✓"
			}
			crit := ""
			if u.Critical {
				crit = " [critical]"
			}
			printInfo("  %s %s%s\n", mark, u.Name, crit)
			printVerbose("      attempts: %d\n", u.Attempts)
			if u.Error != "" {
				printVerbose("      last miss: %s\n", u.Error)
			}
		}
	}
	printValues(s)
	if !st.Ready {
		return fmt.Errorf("critical units not ready after %d tick(s)", st.Ticks)
	}
	return nil
}

func allReady(st host.Status) bool {
	for _, r := range st.Registries {
		if !r.AllReady {
			return false
		}
	}
	return true
}

func printValues(s *host.Session) {
	if !verbose {
		return
	}
	printVerbose("\ncamera: %+v\n", s.Camera().Values())
	if cam, err := s.Camera().Active(); err != nil {
		printVerbose("  active camera: %v\n", err)
	} else {
		printVerbose("  active camera: 0x%X\n", cam)
	}
	printVerbose("vehicle: %+v\n", s.Vehicle().Values())
	if v, err := s.Vehicle().PlayerVehicle(); err != nil {
		printVerbose("  player vehicle: %v\n", err)
	} else {
		printVerbose("  player vehicle: 0x%X\n", v)
	}
}
