package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
)

var errConfigWarnings = errors.New("configuration has warnings")

func newCheckConfigCmd(flags *globalFlags) *cobra.Command {
	var (
		open   bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print its security report",
		Long: `check-config loads and validates the configuration, lists realm
entries naming undefined checkers and prints a security report. With
--open the checkers are instantiated as serve would.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := swad.LoadConfig(flags.config)
			if err != nil {
				return err
			}

			report := cfg.SecurityReport()
			if open {
				factory, err := checkerFactory(cfg, zap.NewNop(), flags)
				if err != nil {
					return err
				}
				gw, err := swad.New().WithConfig(cfg).WithCheckerFactory(factory).Build()
				if err != nil {
					return err
				}
				report = gw.SecurityReport()
				if err := gw.Close(); err != nil {
					return err
				}
			}

			unknown := swad.UnknownCheckers(cfg)
			writeReport(cmd.OutOrStdout(), cfg, unknown, report)
			if strict && (len(unknown) > 0 || len(report.Warnings) > 0) {
				return errConfigWarnings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "instantiate every configured checker")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the report has warnings")
	return cmd
}

func writeReport(w io.Writer, cfg swad.Config, unknown []swad.UnresolvedChecker, r swad.SecurityReport) {
	fmt.Fprintf(w, "configuration ok: %d checkers, %d realms (default %s)\n",
		len(cfg.Checkers), len(cfg.Realms), cfg.Login.DefaultRealm)
	for _, u := range unknown {
		fmt.Fprintf(w, "unknown checker: realm %s references %s\n", u.Realm, u.Checker)
	}

	fmt.Fprintln(w, "security report:")
	fmt.Fprintf(w, "  secure cookies:      %t\n", r.SecureCookies)
	fmt.Fprintf(w, "  trusted proxies:     %d\n", r.TrustedProxies)
	fmt.Fprintf(w, "  session idle / age:  %s / %s\n", r.SessionIdleTimeout, r.SessionMaxAge)
	fmt.Fprintf(w, "  limit tiers:         session %d, login %d\n", r.SessionCreateLimits, r.LoginFailLimits)
	if r.AssertionsEnabled {
		fmt.Fprintf(w, "  assertions:          %s, ttl %s\n", r.SigningAlgorithm, r.AssertionTTL)
	} else {
		fmt.Fprintln(w, "  assertions:          disabled")
	}
	fmt.Fprintf(w, "  audit:               %t\n", r.AuditEnabled)
	fmt.Fprintf(w, "  argon2id:            m=%d t=%d p=%d\n", r.Argon2.Memory, r.Argon2.Time, r.Argon2.Parallelism)
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "warnings:\n  - %s\n", strings.Join(r.Warnings, "\n  - "))
	}
}
