package commands

import (
	"encoding/json"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/screensnap/pkg/buildvars"
)

type buildVars struct {
	Version   string `json:",omitempty"`
	GitCommit string `json:",omitempty"`
	BuildDate string `json:",omitempty"`
}

type buildInfo struct {
	BuildInfo *debug.BuildInfo `json:",omitempty"`
	BuildVars *buildVars       `json:",omitempty"`
}

func getBuildInfo() buildInfo {
	result := buildInfo{
		BuildVars: &buildVars{
			Version:   buildvars.Version,
			GitCommit: buildvars.GitCommit,
			BuildDate: buildvars.BuildDateString,
		},
	}
	if *result.BuildVars == (buildVars{}) {
		result.BuildVars = nil
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}

	for idx, setting := range bi.Settings {
		if setting.Key != "-ldflags" {
			continue
		}
		setting.Value = "***"
		bi.Settings[idx] = setting
	}
	result.BuildInfo = bi

	return result
}

// buildVersion returns the version set at build time, falling back
// to the version of the main module.
func buildVersion() string {
	if buildvars.Version != "" {
		return buildvars.Version
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "(devel)" {
		return ""
	}
	return bi.Main.Version
}

func printBuildInfo(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", " ")
	return enc.Encode(getBuildInfo())
}

func version(cmd *cobra.Command, args []string) error {
	return printBuildInfo(cmd.OutOrStdout())
}
