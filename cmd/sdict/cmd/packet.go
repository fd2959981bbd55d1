package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheusHen/sdict/sdict/protocol"
	"github.com/TheusHen/sdict/sdict/tea"
)

func newSealCmd() *cobra.Command {
	var (
		password string
		seq      uint8
		cmdName  string
	)
	cmd := &cobra.Command{
		Use:   "seal <plaintext>",
		Short: "Encrypt one packet and print it as hex",
		Long: `Encrypt one packet offline and print the wire bytes as hex.

Example:
  sdict seal --password pw --seq 0 --cmd get mykey`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := protocol.ParseCmd(cmdName)
			if err != nil {
				return err
			}
			raw, err := protocol.NewPacket(c, []byte(args[0]), tea.New([]byte(password))).Encrypt(seq)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Cipher password")
	cmd.Flags().Uint8Var(&seq, "seq", 0, "Sequence number")
	cmd.Flags().StringVar(&cmdName, "cmd", "get", "Command name or number")
	return cmd
}

func newOpenCmd() *cobra.Command {
	var (
		password string
		seq      uint8
	)
	cmd := &cobra.Command{
		Use:   "open <hex>",
		Short: "Decrypt one hex encoded packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("decode hex: %w", err)
			}
			p, err := protocol.ParsePacket(raw, tea.New([]byte(password)))
			if err != nil {
				return err
			}
			pt, err := p.Decrypt(seq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.Cmd, pt)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Cipher password")
	cmd.Flags().Uint8Var(&seq, "seq", 0, "Sequence number")
	return cmd
}
