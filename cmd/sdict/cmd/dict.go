package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the dictionary into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Fetch(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d keys\n", c.Len())
			return nil
		},
	}
}

func newGetCmd(opts *options) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a key",
		Long: `Print the value of a key.

By default the dictionary is fetched (or read from the cache) and the key is
looked up locally. With --remote the server is asked for the single key.

Example:
  sdict get mykey`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if remote {
				v, err := c.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}
			if err := c.Fetch(cmd.Context()); err != nil {
				return err
			}
			v, ok := c.Get(args[0])
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of the downloaded dictionary")
	return cmd
}

func newSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Long: `Store a value under a key. Requires set_password in the config.

Example:
  sdict set mykey myvalue`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			// The existing value must be known so it can be removed first.
			if err := c.Fetch(cmd.Context()); err != nil {
				return err
			}
			if err := c.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %q\n", args[0])
			return nil
		},
	}
}

func newDelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Del(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}

func newKeysCmd(opts *options) *cobra.Command {
	var latest int
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List keys",
		Long: `List keys in sorted order, or with --latest the N most recently
added keys, newest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Fetch(cmd.Context()); err != nil {
				return err
			}
			keys := c.Keys()
			if latest > 0 {
				keys = c.Latest(latest)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&latest, "latest", 0, "Show only the N most recently added keys")
	return cmd
}
