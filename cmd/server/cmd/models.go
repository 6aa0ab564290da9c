package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"photo-studio-backend/internal/catalog"
)

var modelsCatalogPath string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the generation model catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(afero.NewOsFs(), envOr(modelsCatalogPath, "MODEL_CATALOG_PATH"))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCATEGORY\tPRICE\tETA")
		for _, m := range cat.Models() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%ds\n",
				m.ID, m.Status, m.Category,
				humanize.FormatFloat("#,###.####", m.Pricing.PerImage), m.Pricing.Currency,
				m.EstimatedSeconds)
		}
		if limit := cat.MaxDownloadSize(); limit > 0 {
			fmt.Fprintf(w, "\nmax download size: %s\n", humanize.Bytes(uint64(limit)))
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().StringVar(&modelsCatalogPath, "catalog", "", "catalog file (default $MODEL_CATALOG_PATH or the embedded catalog)")
}
