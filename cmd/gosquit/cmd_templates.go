package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	templateShape string
	showNumbered  bool
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Print the skeletons of each shape",
	Args:  cobra.NoArgs,
	RunE:  runTemplates,
}

func init() {
	templatesCmd.Flags().StringVar(&templateShape, "shape", "", "Only this shape")
	templatesCmd.Flags().BoolVar(&showNumbered, "numbered", false, "Print numbered skeletons with chain lengths")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	names := shapeList()
	if templateShape != "" {
		names = []string{templateShape}
	}
	shapes, err := parseShapes(names)
	if err != nil {
		return err
	}

	engine, err := openEngine(cmd, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	for _, shape := range shapes {
		fmt.Fprintf(out, "# %s\n", shape)
		if !showNumbered {
			skels, err := engine.Skeletons(shape)
			if err != nil {
				return err
			}
			for _, s := range skels {
				fmt.Fprintln(out, s)
			}
			continue
		}
		nums, err := engine.Templates(shape)
		if err != nil {
			return err
		}
		for _, n := range nums {
			lengths := make([]string, len(n.ChainLengths))
			for i, l := range n.ChainLengths {
				lengths[i] = fmt.Sprint(l)
			}
			fmt.Fprintf(out, "%s\t%s\n", n.Text, strings.Join(lengths, ","))
		}
	}
	return nil
}
