package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codegenius/internal/docgen"
	"github.com/mvp-joe/codegenius/internal/filetree"
)

var treeJSONFlag bool

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree [directory]",
	Short: "Print the file tree the documentation pipeline sees",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		tree, err := filetree.Build(root, filetree.Options{IgnoreDirs: cfg.Tree.IgnoreDirs, Ignore: cfg.Tree.Ignore})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if treeJSONFlag {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tree)
		}

		for _, line := range docgen.TreeLines(tree) {
			fmt.Fprintln(out, line)
		}
		files, dirs := tree.Count()
		fmt.Fprintf(out, "\n%s files, %s directories\n", formatNumber(files), formatNumber(dirs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVar(&treeJSONFlag, "json", false, "Print the tree as JSON")
}
