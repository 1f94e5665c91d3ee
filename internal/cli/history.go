package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0x6d61/rawget/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded fetches",
		Long: `History lists, shows and prunes the fetch records written by
"rawget fetch" when --history-store is sqlite or bbolt.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded fetches, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded fetch",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one recorded fetch",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than --max-age",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCleanup,
	}
	cleanupCmd.Flags().Duration("max-age", 30*24*time.Hour, "Maximum record age to keep")

	cmd.AddCommand(listCmd, showCmd, deleteCmd, cleanupCmd)
	return cmd
}

// openHistory opens the configured store. A disabled store is an error
// here because there is nothing to inspect.
func openHistory(cmd *cobra.Command) (history.Store, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.HistoryStore)) {
	case "", "none", "disabled":
		return nil, "", fmt.Errorf("history is disabled (use --history-store sqlite or bbolt)")
	}
	store, err := history.NewStore(cfg.HistoryStore, cfg.HistoryPath)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Format, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded fetches.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFETCHED AT\tSTATUS\tTARGET")
	for _, s := range summaries {
		status := s.StatusCode
		if s.Error != "" {
			status = "FAILED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.FetchedAt.Format(time.RFC3339), status, s.Target)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, format, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.LoadByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no record with ID %q", args[0])
	}

	w := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "ID:         %s\n", rec.ID)
	fmt.Fprintf(w, "Target:     %s\n", rec.Target)
	fmt.Fprintf(w, "Fetched at: %s\n", rec.FetchedAt.Format(time.RFC3339))
	if rec.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", rec.Error)
		return nil
	}
	fmt.Fprintf(w, "Status:     %s\n", rec.StatusCode)
	fmt.Fprintf(w, "Body:       %d bytes\n", rec.BodySize)
	fmt.Fprintf(w, "Duration:   %dms\n", rec.DurationMS)
	if len(rec.Headers) > 0 {
		fmt.Fprintln(w, "Headers:")
		for _, k := range sortedHeaderNames(rec.Headers) {
			fmt.Fprintf(w, "  %s:%s\n", k, rec.Headers[k])
		}
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runHistoryCleanup(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("max-age")
	if maxAge <= 0 {
		return fmt.Errorf("--max-age must be positive")
	}

	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Cleanup(cmd.Context(), maxAge)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s) older than %s\n", n, maxAge)
	return nil
}

func sortedHeaderNames(h map[string]string) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
