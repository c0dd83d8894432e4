package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

var appendCmd = &cobra.Command{
	Use:   "append <path>",
	Short: "Fingerprint files not yet in the index",
	Long: `Walk <path> and add a fingerprint for every file the index does not
already contain. Existing entries are left untouched. <path> may also be
a single file.`,
	Args: cobra.ExactArgs(1),
	RunE: commandRunner(reconcile.OpAppend),
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Drop index entries whose files no longer exist",
	Args:  cobra.NoArgs,
	RunE:  commandRunner(reconcile.OpRemove),
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-fingerprint indexed files and accept their current contents",
	Long: `Re-hash every indexed file and replace fingerprints that changed.
Files that no longer exist are skipped and keep their old entry; use
"rotsniff remove" to drop them.`,
	Args: cobra.NoArgs,
	RunE: commandRunner(reconcile.OpUpdate),
}

var verifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Re-hash indexed files and report divergence",
	Long: `Re-hash every indexed file and compare it with the stored fingerprint,
then walk <path> for files the index does not know about. The index is
not modified.

Reported lines:
  MODIFIED: <path>          content differs from the index
  FILE NOT FOUND: <path>    indexed file is gone
  NOT FOUND IN DB: <path>   file under the walked path is not indexed

Exits with status 1 when anything diverged.`,
	Args: cobra.ExactArgs(1),
	RunE: commandRunner(reconcile.OpVerify),
}

func init() {
	rootCmd.AddCommand(appendCmd, removeCmd, updateCmd, verifyCmd)
}
