package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/password"
)

func newHashCmd(flags *globalFlags) *cobra.Command {
	var (
		user string
		name string
	)
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password read from stdin for the file checker",
		Long: `hash reads one password line from stdin and prints its argon2id hash.
With --user it prints a complete "user:hash[:Real Name]" line for a file
checker. Hash parameters come from the configuration file when it exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.ContainsAny(user, ":\n") || strings.ContainsAny(name, ":\n") {
				return errors.New("user and name must not contain ':' or newlines")
			}

			cfg := swad.DefaultConfig()
			if cmd.Flags().Changed("config") {
				loaded, err := swad.LoadConfig(flags.config)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			hasher, err := password.NewArgon2(hasherConfig(cfg))
			if err != nil {
				return err
			}

			pw, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			encoded, err := hasher.Hash(pw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case user == "":
				_, err = fmt.Fprintln(out, encoded)
			case name == "":
				_, err = fmt.Fprintf(out, "%s:%s\n", user, encoded)
			default:
				_, err = fmt.Fprintf(out, "%s:%s:%s\n", user, encoded, name)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "print a file checker line for this user")
	cmd.Flags().StringVarP(&name, "name", "n", "", "real name for the file checker line")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password on stdin")
	}
	return line, nil
}
