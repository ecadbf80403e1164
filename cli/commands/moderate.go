package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/providers/openai"
)

func (a *App) newModerateCommand() *cobra.Command {
	var (
		file   string
		scores bool
	)
	cmd := &cobra.Command{
		Use:   "moderate [text...]",
		Short: "Classify text against the content policy",
		Long: `Classify each argument, or each line of --file, against the content policy.

Examples:
  oaikit moderate "some user comment"
  oaikit moderate --file comments.txt --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := append([]string(nil), args...)
			if file != "" {
				lines, err := a.readLines(file)
				if err != nil {
					return err
				}
				inputs = append(inputs, lines...)
			}
			if len(inputs) == 0 {
				return validationErr("no input: pass text arguments or --file")
			}
			model, err := a.modelOr(openai.ModelOmniModerationLatest)
			if err != nil {
				return err
			}
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			resp, err := p.Moderate(cmd.Context(), &openai.ModerationRequest{Model: model, Input: inputs})
			if err != nil {
				return providerErr(err)
			}
			if a.jsonOutput {
				return a.printJSON(resp)
			}

			tw := a.table()
			fmt.Fprintln(tw, "INDEX\tFLAGGED\tCATEGORIES\tTEXT")
			for i, r := range resp.Results {
				text := ""
				if i < len(inputs) {
					text = inputs[i]
				}
				cats := strings.Join(r.FlaggedCategories(), ",")
				if cats == "" {
					cats = "-"
				}
				fmt.Fprintf(tw, "%d\t%t\t%s\t%s\n", i, r.Flagged, cats, truncate(text, 40))
				if scores {
					for _, c := range r.FlaggedCategories() {
						fmt.Fprintf(tw, "\t\t  %s\t%.4f\n", c, r.CategoryScores[c])
					}
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read inputs from a file, one per line")
	cmd.Flags().BoolVar(&scores, "scores", false, "show scores of flagged categories")
	return cmd
}
