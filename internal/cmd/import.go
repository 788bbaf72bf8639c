package cmd

import (
	"fmt"

	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/importer"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the one-time initial import from SVN",
	Long:  `Seed a brand-new Git mirror from the configured SVN repository, either as a single snapshot commit or as a full revision-by-revision replay.`,
	RunE:  runImport,
}

func init() {
	importCmd.Flags().String("mode", "", `import mode: "snapshot" or "full" (default: options.initial_import_mode from config)`)
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	if modeFlag == "" {
		modeFlag = cfg.Options.InitialImportMode
	}
	mode := importer.Mode(modeFlag)
	if mode != importer.ModeSnapshot && mode != importer.ModeFull {
		return fmt.Errorf(`invalid import mode %q: must be "snapshot" or "full"`, modeFlag)
	}

	ctx := cmd.Context()
	store, svn, git, remote, err := wireCollaborators(ctx, *cfg)
	if err != nil {
		return err
	}

	im := importer.New(*cfg, store, svn, git, remote)
	count, err := im.Import(ctx, mode)
	if err != nil {
		return fmt.Errorf("initial import: %w", err)
	}

	fmt.Printf("initial import complete: %d commit(s) (%s)\n", count, mode)
	return nil
}
