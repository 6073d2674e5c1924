package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/assetkit/archive"
)

// errFailures is returned after a command reported failing units and kept going.
var errFailures = errors.New("one or more units failed")

type globalFlags struct {
	keyring string
	profile string
	key1    string
	key2    string
	charset string
	verbose bool
}

type app struct {
	flags  globalFlags
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "assetdump",
		Short:         "Inspect and extract game asset files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if a.flags.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.keyring, "keyring", "", "YAML key ring file")
	pf.StringVar(&a.flags.profile, "profile", "", "profile name in the key ring")
	pf.StringVar(&a.flags.key1, "key1", "", "first archive key (decimal or 0x hex)")
	pf.StringVar(&a.flags.key2, "key2", "", "second archive key (decimal or 0x hex)")
	pf.StringVar(&a.flags.charset, "charset", "", "code page of entry names, e.g. windows-1251")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug diagnostics")

	cmd.AddCommand(
		newListCmd(a),
		newExtractCmd(a),
		newSceneCmd(a),
		newGridCmd(a),
	)
	return cmd
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// archiveOptions resolves the key ring, profile, key and charset flags.
// Explicit keys and charset override the profile's.
func (a *app) archiveOptions() ([]archive.Option, error) {
	var (
		opts    []archive.Option
		haveKey bool
	)

	if a.flags.keyring != "" {
		ring, err := archive.LoadKeyRing(a.flags.keyring)
		if err != nil {
			return nil, err
		}
		name := a.flags.profile
		if name == "" {
			names := ring.Names()
			if len(names) != 1 {
				return nil, fmt.Errorf("key ring has %d profiles; choose one with --profile", len(names))
			}
			name = names[0]
		}
		p, ok := ring.Profile(name)
		if !ok {
			return nil, fmt.Errorf("profile %q not found in %s", name, a.flags.keyring)
		}
		opts = append(opts, archive.WithProfile(p))
		haveKey = true
	} else if a.flags.profile != "" {
		return nil, errors.New("--profile requires --keyring")
	}

	if a.flags.key1 != "" || a.flags.key2 != "" {
		if a.flags.key1 == "" || a.flags.key2 == "" {
			return nil, errors.New("--key1 and --key2 must be given together")
		}
		k1, err := archive.ParseKey(a.flags.key1)
		if err != nil {
			return nil, fmt.Errorf("--key1: %w", err)
		}
		k2, err := archive.ParseKey(a.flags.key2)
		if err != nil {
			return nil, fmt.Errorf("--key2: %w", err)
		}
		opts = append(opts, archive.WithKeys(k1, k2))
		haveKey = true
	}
	if !haveKey {
		return nil, errors.New("no archive keys: use --keyring or --key1/--key2")
	}

	if a.flags.charset != "" {
		enc, err := archive.CharsetByName(a.flags.charset)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithCharset(enc))
	}
	return append(opts, archive.WithLogger(a.log())), nil
}
