package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local cache",
	Long: `The local cache keeps the last loaded copy of each view for offline
reading and a faster start. The server always wins over it.`,
}

var cacheKeysCmd = &cobra.Command{
	Use:     "keys",
	Aliases: []string{"ls"},
	Short:   "List cached views",
	RunE:    runCacheKeys,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Remove one cached view, or all of them",
	Long: `Remove the cached view with the given key (see 'ironnote cache keys'),
or every cached view when no key is given. This includes the local todo
order. Data on the server is not touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	cacheCmd.AddCommand(cacheKeysCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheKeys(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cache == nil {
		return fmt.Errorf("cache is not available")
	}

	entries, err := a.cache.Entries(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cache: %s\n\n", a.cache.Path())
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "  (empty)")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "  %-48s  %6d bytes  %s\n", e.Key, len(e.Value), e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(a.out)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cache == nil {
		return fmt.Errorf("cache is not available")
	}

	if len(args) == 1 {
		if err := a.cache.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed %s.\n", args[0])
		return nil
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force && !a.confirm("Clear the local cache?") {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	fmt.Fprintln(a.out, "🧹 Clearing local cache...")
	n, err := a.cache.Clear(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %d cached views.\n", n)
	return nil
}
