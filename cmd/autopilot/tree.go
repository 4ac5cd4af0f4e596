package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"holdem-autopilot/abstraction"
)

var (
	treeBucket int

	treeCmd = &cobra.Command{
		Use:   "tree [config] [path]",
		Short: "Describe a betting tree and the edges leaving one node",
		Example: `  autopilot tree nlhe-fchpa-100
  autopilot tree nlhe-fchpa-100 cC --bucket 3`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runTree,
	}
)

func init() {
	treeCmd.Flags().IntVar(&treeBucket, "bucket", -1, "show the configured strategy's probabilities for this bucket")
}

func runTree(cmd *cobra.Command, args []string) error {
	tree, err := abstraction.NewTree(args[0])
	if err != nil {
		return err
	}
	n := tree.Root()
	if len(args) == 2 {
		if n, err = tree.Find(args[1]); err != nil {
			return err
		}
	}

	pterm.DefaultSection.Println(tree.Config())
	pterm.Info.Printfln("stack %d sb, %d nodes, %d info sets", tree.StackSize(), tree.Len(), tree.InfoSets())
	pot := tree.Pot(n)
	pterm.Info.Printfln("node %s: %s, player %d to act, pot %d/%d", tree.Describe(n), tree.Round(n), tree.Player(n), pot[0], pot[1])
	if tree.Terminal(n) {
		pterm.Info.Println("terminal")
		return nil
	}

	var probs []float64
	if treeBucket >= 0 {
		if probs, err = strategyRow(tree, n); err != nil {
			return err
		}
	}

	header := []string{"edge", "path", "round", "pot", "terminal"}
	if probs != nil {
		header = append(header, "p")
	}
	data := pterm.TableData{header}
	for i := 0; i < tree.NumChildren(n); i++ {
		c := tree.ChildAt(n, i)
		p := tree.Pot(c)
		row := []string{
			tree.Action(c).Name(),
			tree.PathString(c),
			tree.Round(c).String(),
			fmt.Sprintf("%d/%d", p[0], p[1]),
			strconv.FormatBool(tree.Terminal(c)),
		}
		if probs != nil {
			row = append(row, strconv.FormatFloat(probs[i], 'f', 3, 64))
		}
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// strategyRow looks n up in the configured strategy built on the same tree.
func strategyRow(tree *abstraction.Tree, n abstraction.NodeID) ([]float64, error) {
	if len(cfg.Strategies) == 0 {
		return nil, fmt.Errorf("--bucket needs strategies in the config")
	}
	set, err := abstraction.LoadArtifact(cfg.Strategies...)
	if err != nil {
		return nil, err
	}
	s := set.Strategy(tree.StackSize())
	if s == nil || s.Tree().Config() != tree.Config() {
		return nil, fmt.Errorf("no configured strategy plays %s", tree.Config())
	}
	return s.Probabilities(n, treeBucket)
}
