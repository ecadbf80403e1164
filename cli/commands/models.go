package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
)

func (a *App) newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and inspect models",
	}
	cmd.AddCommand(a.newModelsListCommand(), a.newModelsGetCommand())
	return cmd
}

func (a *App) newModelsListCommand() *cobra.Command {
	var (
		known  bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models available to the API key",
		Long: `List models from the live /models endpoint, sorted by ID.
--known prints the built-in catalog with capabilities instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			if known {
				return a.printKnownModels(p.Models(), filter)
			}
			models, err := p.ListModels(cmd.Context())
			if err != nil {
				return providerErr(err)
			}
			models = slices.DeleteFunc(models, func(m openai.Model) bool {
				return filter != "" && !strings.Contains(m.ID, filter)
			})
			slices.SortFunc(models, func(x, y openai.Model) int { return strings.Compare(x.ID, y.ID) })

			if a.jsonOutput {
				return a.printJSON(models)
			}
			tw := a.table()
			fmt.Fprintln(tw, "ID\tOWNED BY\tCREATED")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.OwnedBy, unixTime(m.Created))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&known, "known", false, "show the built-in model catalog")
	cmd.Flags().StringVar(&filter, "filter", "", "only IDs containing this text")
	return cmd
}

func (a *App) printKnownModels(models []core.ModelInfo, filter string) error {
	models = slices.DeleteFunc(slices.Clone(models), func(m core.ModelInfo) bool {
		return filter != "" && !strings.Contains(string(m.ID), filter)
	})
	if a.jsonOutput {
		return a.printJSON(models)
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tCAPABILITIES")
	for _, m := range models {
		caps := make([]string, len(m.Capabilities))
		for i, c := range m.Capabilities {
			caps[i] = string(c)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.DisplayName, strings.Join(caps, ","))
	}
	return tw.Flush()
}

func (a *App) newModelsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model-id>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			m, err := p.GetModel(cmd.Context(), core.ModelID(args[0]))
			if err != nil {
				return providerErr(err)
			}
			if a.jsonOutput {
				return a.printJSON(m)
			}
			tw := a.table()
			fmt.Fprintf(tw, "id:\t%s\n", m.ID)
			fmt.Fprintf(tw, "owned by:\t%s\n", m.OwnedBy)
			fmt.Fprintf(tw, "created:\t%s\n", unixTime(m.Created))
			return tw.Flush()
		},
	}
}
