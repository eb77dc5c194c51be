package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"staybook/internal/app/dto"
	accountingapp "staybook/internal/app/handlers/accounting"
	"staybook/internal/app/queries"
	"staybook/internal/infra/export"
)

func newExportCommand(load configLoader) *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the accounting report of fully paid stays",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "xlsx" && format != "json" {
				return fmt.Errorf("unknown format %q, want xlsx or json", format)
			}
			cfg, logger, err := bootstrap(load)
			if err != nil {
				return err
			}
			s, err := assemble(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := queries.Ask[accountingapp.ReportQuery, dto.AccountingReport](systemContext(cmd.Context()), s.app.Queries, accountingapp.ReportQuery{})
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("accounting-%s.%s", time.Now().In(cfg.BusinessTZ).Format("2006-01-02"), format)
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if format == "json" {
				err = json.NewEncoder(w).Encode(report)
			} else {
				err = export.Workbook{}.WriteAccounting(w, report)
			}
			if err != nil {
				return err
			}
			logger.Info("accounting exported", "rows", len(report.Rows), "out", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default accounting-<date>.<format>)")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or json")
	return cmd
}
