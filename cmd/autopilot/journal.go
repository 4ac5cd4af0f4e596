package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"holdem-autopilot/journal"
)

var (
	journalTable string
	journalLimit int

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Inspect the decision journal",
	}
	journalListCmd = &cobra.Command{
		Use:   "ls",
		Short: "List the most recent decisions",
		Args:  cobra.NoArgs,
		RunE:  runJournalList,
	}
	journalHandCmd = &cobra.Command{
		Use:   "hand [hand-id]",
		Short: "Show every decision of one hand with its capture",
		Args:  cobra.ExactArgs(1),
		RunE:  runJournalHand,
	}
	journalSchemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Print the postgres schema the journal expects",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), journal.PostgresSchema)
		},
	}
)

func init() {
	journalListCmd.Flags().StringVarP(&journalTable, "table", "t", "", "only this table")
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "rows to show")
	journalCmd.AddCommand(journalListCmd, journalHandCmd, journalSchemaCmd)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	svc, err := openJournal()
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.ListRecent(cmd.Context(), journalTable, journalLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		pterm.Info.Println("journal is empty")
		return nil
	}
	data := pterm.TableData{{"time", "table", "hand", "round", "path", "edge", "command", "amount"}}
	for _, r := range records {
		hand := r.HandID
		if len(hand) > 8 {
			hand = hand[:8]
		}
		path := r.Path
		if r.Rollback {
			path += " (retry)"
		}
		data = append(data, []string{
			r.DecidedAt.Local().Format(time.DateTime),
			r.Table,
			hand,
			r.Round,
			path,
			r.Edge,
			r.Command,
			strconv.FormatInt(r.Amount, 10),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runJournalHand(cmd *cobra.Command, args []string) error {
	svc, err := openJournal()
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.GetHand(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("hand %s: %w", args[0], err)
	}
	data := pterm.TableData{{"path", "edge", "command", "amount", "stack", "bets", "board", "fingerprint"}}
	for _, r := range records {
		row := []string{r.Path, r.Edge, r.Command, strconv.FormatInt(r.Amount, 10), "?", "?", "?", r.Fingerprint}
		if s, err := r.Snapshot(); err == nil {
			row[4] = strconv.FormatInt(s.Stack, 10)
			row[5] = fmt.Sprintf("%d/%d", s.Bet[0], s.Bet[1])
			row[6] = s.Round().String()
		}
		data = append(data, row)
	}
	pterm.DefaultSection.Printfln("Hand %s on %s", args[0], records[0].Table)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
