package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/config"
	"github.com/xaionaro-go/screensnap/pkg/xpath"
)

func printDisplayTable(out io.Writer, displays []capturetarget.Target) {
	fmt.Fprintf(out, "%4s  %-12s  %-18s  %s\n", "#", "SIZE", "POSITION", "NAME")
	for idx, d := range displays {
		size := d.Size()
		fmt.Fprintf(out, "%4d  %-12s  %-18s  %s\n",
			idx+1,
			fmt.Sprintf("%dx%d", size.X, size.Y),
			d.Bounds.Min.String(),
			d.Name,
		)
	}
}

func listDisplays(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resolver, wmh := newResolver(ctx, Config)
	if wmh != nil {
		defer wmh.Close()
	}

	displays, err := resolver.Displays.Displays(ctx)
	if err != nil {
		return fmt.Errorf("unable to enumerate displays: %w", err)
	}
	printDisplayTable(cmd.OutOrStdout(), displays)
	return nil
}

func listWindows(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resolver, wmh := newResolver(ctx, Config)
	if wmh != nil {
		defer wmh.Close()
	}

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	windows, err := resolver.MatchWindows(ctx, query)
	if err != nil {
		return err
	}
	if query != "" && len(windows) == 0 {
		return capturetarget.ErrNoMatchingWindow{Query: query}
	}
	printWindowTable(cmd.OutOrStdout(), windows)
	return nil
}

func generateConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfgPathRaw, err := cmd.Flags().GetString(flagConfigPath)
	if err != nil {
		return err
	}
	cfgPath, err := xpath.Expand(cfgPathRaw)
	if err != nil {
		return fmt.Errorf("unable to expand path '%s': %w", cfgPathRaw, err)
	}

	_, err = os.Stat(cfgPath)
	switch {
	case err == nil:
		return ErrConfigExists{Path: cfgPath}
	case !os.IsNotExist(err):
		return fmt.Errorf("unable to access '%s': %w", cfgPath, err)
	}

	if err := config.WriteConfigToPath(ctx, cfgPath, Config); err != nil {
		return err
	}
	logger.Debugf(ctx, "the config is written to '%s'", cfgPath)
	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}
