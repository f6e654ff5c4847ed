package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gobundle/gobundle/internal/bundle"
	"github.com/gobundle/gobundle/internal/finalizer"
	"github.com/gobundle/gobundle/internal/fswriter"
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/logger"
)

// effectiveConfig is the yaml.v3-serializable view of the flags/config
// values a build actually ran with, printed by --print-config so a
// gobundle.yaml author can see exactly what their file (plus any flag
// overrides) resolved to.
type effectiveConfig struct {
	Outdir             string   `yaml:"outdir"`
	Format             string   `yaml:"format"`
	ExportMode         string   `yaml:"export_mode"`
	External           []string `yaml:"external,omitempty"`
	Treeshake          bool     `yaml:"treeshake"`
	ShimMissingExports bool     `yaml:"shim_missing_exports"`
	EntryFileNames     string   `yaml:"entry_file_names,omitempty"`
	ChunkFileNames     string   `yaml:"chunk_file_names,omitempty"`
}

var buildCmd = &cobra.Command{
	Use:   "build [entry...]",
	Short: "Resolve, link, and emit a chunk graph for the given entry points",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("outdir", "dist", "output directory, relative to the current directory")
	buildCmd.Flags().String("format", "esm", "output module format: esm or cjs")
	buildCmd.Flags().String("export-mode", "auto", "entry export mode: auto, named, default, or none")
	buildCmd.Flags().StringSlice("external", nil, "specifier to leave unbundled (repeatable)")
	buildCmd.Flags().Bool("treeshake", true, "remove statements whose effects are unobservable")
	buildCmd.Flags().Bool("shim-missing-exports", false, "synthesize undefined bindings for exports a module never declares")
	buildCmd.Flags().String("entry-file-names", "", "filename template for entry chunks, e.g. [name].js")
	buildCmd.Flags().String("chunk-file-names", "", "filename template for shared chunks, e.g. chunks/[name]-[hash].js")
	buildCmd.Flags().Bool("print-config", false, "print the effective configuration as yaml and exit without building")

	viper.BindPFlag("outdir", buildCmd.Flags().Lookup("outdir"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	outdir := viper.GetString("outdir")
	formatFlag, _ := cmd.Flags().GetString("format")
	exportModeFlag, _ := cmd.Flags().GetString("export-mode")
	externals, _ := cmd.Flags().GetStringSlice("external")
	treeshake, _ := cmd.Flags().GetBool("treeshake")
	shim, _ := cmd.Flags().GetBool("shim-missing-exports")
	entryFileNames, _ := cmd.Flags().GetString("entry-file-names")
	chunkFileNames, _ := cmd.Flags().GetString("chunk-file-names")
	printConfig, _ := cmd.Flags().GetBool("print-config")

	format, err := parseFormat(formatFlag)
	if err != nil {
		return err
	}
	exportMode, err := parseExportMode(exportModeFlag)
	if err != nil {
		return err
	}

	if printConfig {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(effectiveConfig{
			Outdir:             outdir,
			Format:             formatFlag,
			ExportMode:         exportModeFlag,
			External:           externals,
			Treeshake:          treeshake,
			ShimMissingExports: shim,
			EntryFileNames:     entryFileNames,
			ChunkFileNames:     chunkFileNames,
		})
	}

	externalSet := make(map[string]bool, len(externals))
	for _, e := range externals {
		externalSet[e] = true
	}

	input := make([]bundle.InputEntry, 0, len(args))
	for _, a := range args {
		input = append(input, bundle.InputEntry{Name: entryStem(a), Import: a})
	}

	fs := afero.NewOsFs()
	result, err := bundle.Build(bundle.Options{
		FS:    fs,
		Input: input,
		Cwd:   ".",

		Treeshake: treeshake,
		IsExternal: func(specifier, importer string, isResolved bool) bool {
			return externalSet[specifier]
		},
		OnWarn: func(m logger.Msg) {
			fmt.Println(m.String())
		},
		ShimMissingExports: shim,

		Format:         format,
		ExportMode:     exportMode,
		EntryFileNames: entryFileNames,
		ChunkFileNames: chunkFileNames,
	})
	if err != nil {
		return err
	}

	paths, err := fswriter.Write(fs, absOrSame(outdir), result.Assets)
	if err != nil {
		return fmt.Errorf("writing assets: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func parseFormat(s string) (finalizer.Format, error) {
	switch s {
	case "esm", "":
		return finalizer.FormatESM, nil
	case "cjs":
		return finalizer.FormatCJS, nil
	default:
		return 0, fmt.Errorf("unknown --format %q: expected esm or cjs", s)
	}
}

func parseExportMode(s string) (graph.ExportMode, error) {
	switch s {
	case "auto", "":
		return graph.ExportAuto, nil
	case "named":
		return graph.ExportNamed, nil
	case "default":
		return graph.ExportDefault, nil
	case "none":
		return graph.ExportNone, nil
	default:
		return 0, fmt.Errorf("unknown --export-mode %q: expected auto, named, default, or none", s)
	}
}

// entryStem derives an input.Name from a bare entry specifier, stripping
// any extension, for the common case of a CLI invocation that doesn't
// distinguish the chunk's stem from its import path.
func entryStem(specifier string) string {
	base := filepath.Base(specifier)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
