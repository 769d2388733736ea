package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/cred"
	"github.com/MrEthical07/swad/password"
)

const defaultConfigPath = "/etc/swad/swad.yaml"

type globalFlags struct {
	config    string
	pamHelper string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "swad",
		Short: "SWAD - simple web authentication daemon",
		Long: `swad authenticates users against configurable credentials checkers
and answers forward-auth subrequests from a reverse proxy.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", defaultConfigPath, "configuration file")
	root.PersistentFlags().StringVar(&flags.pamHelper, "pam-helper", cred.DefaultPAMHelper, "PAM helper executable")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newHashCmd(flags))
	root.AddCommand(newCheckConfigCmd(flags))
	return root
}

func hasherConfig(cfg swad.Config) password.Config {
	return password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}
}

// checkerFactory opens configured checkers through cred.Open.
func checkerFactory(cfg swad.Config, logger *zap.Logger, flags *globalFlags) (swad.CheckerFactory, error) {
	hasher, err := password.NewArgon2(hasherConfig(cfg))
	if err != nil {
		return nil, err
	}
	opts := cred.Options{
		Hasher:    hasher,
		Logger:    logger.Named("cred"),
		PAMHelper: flags.pamHelper,
	}
	return func(class string, args []string) (swad.CredentialsChecker, error) {
		chk, err := cred.Open(class, args, opts)
		if err != nil {
			return nil, err
		}
		return chk, nil
	}, nil
}

// buildGateway loads the configuration file and assembles a gateway with
// every configured checker opened.
func buildGateway(flags *globalFlags) (*swad.Gateway, *zap.Logger, error) {
	cfg, err := swad.LoadConfig(flags.config)
	if err != nil {
		return nil, nil, err
	}
	logger, err := swad.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	factory, err := checkerFactory(cfg, logger, flags)
	if err != nil {
		return nil, nil, err
	}
	gw, err := swad.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithCheckerFactory(factory).
		Build()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return gw, logger, nil
}
