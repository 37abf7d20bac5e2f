// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/artifactfs"
	"github.com/bureau-foundation/nodestrap/lib/config"
	"github.com/bureau-foundation/nodestrap/lib/history"
	"github.com/bureau-foundation/nodestrap/lib/orchestrate"
	"github.com/bureau-foundation/nodestrap/lib/platform"
	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
	"github.com/bureau-foundation/nodestrap/lib/session/localsession"
	"github.com/bureau-foundation/nodestrap/lib/session/sshsession"
)

// localTarget is the history target name for --local runs.
const localTarget = "localhost"

// installerFileName is the artifact name used when a local run picks
// its own download path.
const installerFileName = "chef-client-latest.msi"

type runOptions struct {
	configPath string
	template   string
	only       []string
	local      bool
	noHistory  bool
	verbose    bool
}

func runCommand(stdout io.Writer) *cli.Command {
	var options runOptions
	return &cli.Command{
		Name:    "run",
		Summary: "Bootstrap one node",
		Description: `Bootstrap one node.

Assembles the node's context from the config file, renders the
template, runs each section in order over SSH, then waits for the
installer artifact and verifies it. The first failing section stops
the run. With --local every section runs on this machine; when no
bootstrap directory is configured a temporary one is created and
removed afterwards.

Exit status: 0 on success, 2 when a section exits non-zero, 3 when the
artifact never appears, 4 when it fails verification, 1 otherwise.`,
		Usage: "nodestrap run [flags] [host[:port]]",
		Examples: []cli.Example{
			{
				Description: "Bootstrap the node named in the config",
				Command:     "nodestrap run --config node01.yaml",
			},
			{
				Description: "Bootstrap a different host with the same config",
				Command:     "nodestrap run --config windows.yaml 10.0.4.17:2222",
			},
			{
				Description: "Exercise only the download section on this machine",
				Command:     "nodestrap run --local --only download --config local.yaml",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.StringVarP(&options.configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
			flagSet.StringVarP(&options.template, "template", "t", "", "built-in template name or template file (overrides template.name)")
			flagSet.StringSliceVar(&options.only, "only", nil, "keep only these section kinds; the rest become no-ops")
			flagSet.BoolVar(&options.local, "local", false, "run on this machine instead of over SSH")
			flagSet.BoolVar(&options.noHistory, "no-history", false, "do not record the attempt")
			flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log each section and probe")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one target, got %d arguments", len(args))
			}
			cfg, err := loadConfig(options.configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Target.Host = args[0]
			}
			if options.template != "" {
				cfg.Template.Name = options.template
			}
			if len(options.only) > 0 {
				cfg.Template.Only = options.only
			}
			logger := cli.NewCommandLogger(options.verbose).With("command", "run")
			return runAttempt(ctx, stdout, cfg, options, logger)
		},
	}
}

func runAttempt(ctx context.Context, stdout io.Writer, cfg *config.Config, options runOptions, logger *slog.Logger) error {
	descriptor, err := targetPlatform(cfg.Target.Platform, options.local)
	if err != nil {
		return err
	}
	template, err := loadTemplate(cfg.Template.Name, descriptor)
	if err != nil {
		return err
	}

	bootstrap := cfg.Bootstrap
	if options.local && bootstrap.BootstrapDirectory == "" {
		directory, err := os.MkdirTemp("", "nodestrap-bootstrap-")
		if err != nil {
			return fmt.Errorf("creating bootstrap directory: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(directory); err != nil {
				logger.Warn("removing bootstrap directory", "directory", directory, "error", err)
			}
		}()
		bootstrap.BootstrapDirectory = directory
		if bootstrap.LocalDownloadPath == "" {
			bootstrap.LocalDownloadPath = filepath.Join(directory, installerFileName)
		}
		logger.Info("using temporary bootstrap directory", "directory", directory)
	}

	request := orchestrate.Request{
		Platform:      descriptor,
		Bootstrap:     bootstrap,
		Template:      template,
		Only:          cfg.Template.Only,
		Shell:         artifactfs.Shell(cfg.Session.Shell),
		CleanArtifact: cfg.Completion.CleanArtifact,
		Completion: orchestrate.Completion{
			Interval: cfg.Completion.IntervalDuration(),
			Deadline: cfg.Completion.DeadlineDuration(),
		},
	}
	if cfg.Completion.Checksum != "" {
		request.Checksum = &orchestrate.ChecksumSpec{
			Algorithm: cfg.Completion.ChecksumAlgorithm,
			Digest:    cfg.Completion.Checksum,
		}
	}

	var opener session.Opener
	if options.local {
		request.Endpoint = session.Endpoint{Host: localTarget}
		request.Filesystem = artifactfs.Local{}
		opener = localsession.Opener{Options: localsession.Options{
			CommandTimeout: cfg.Session.CommandTimeoutDuration(),
			Logger:         logger,
		}}
	} else {
		if cfg.Target.Host == "" {
			return errors.New("no target: set target.host in the config or pass host[:port]")
		}
		request.Endpoint, err = session.ParseEndpoint(cfg.Target.Host)
		if err != nil {
			return err
		}
		request.Credentials, err = resolveCredentials(cfg.Target, request.Endpoint, os.Getenv, promptPassword)
		if err != nil {
			return err
		}
		opener = sshsession.NewOpener(sshsession.Options{
			KnownHostsFiles:       cfg.Target.KnownHostsFiles,
			InsecureIgnoreHostKey: cfg.Target.InsecureIgnoreHostKey,
			DialTimeout:           cfg.Session.DialTimeoutDuration(),
			CommandTimeout:        cfg.Session.CommandTimeoutDuration(),
			BatchFiles:            template.Dialect == render.DialectBatch,
			Logger:                logger,
		})
	}

	orchestratorOptions := orchestrate.Options{Logger: logger}
	if !cfg.History.Disabled && !options.noHistory {
		store, err := history.Open(history.Config{
			Path:            cfg.History.Path,
			Compression:     history.Compression(cfg.History.Compression),
			RetainPerTarget: cfg.History.RetainPerTarget,
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		orchestratorOptions.Recorder = store
	}

	result, err := orchestrate.New(opener, orchestratorOptions).Bootstrap(ctx, request)
	printResult(cli.NewTheme(stdout), stdout, request.Endpoint.String(), result, err)
	return exitError(err)
}

// targetPlatform parses the configured platform. Local runs may leave
// it empty and use the platform nodestrap runs on.
func targetPlatform(configured string, local bool) (platform.Descriptor, error) {
	if configured != "" {
		return platform.Parse(configured)
	}
	if !local {
		return platform.Descriptor{}, errors.New("target.platform is required for remote runs (for example windows/amd64)")
	}
	return platform.Resolve(os.Getenv, runtime.GOOS, runtime.GOARCH)
}

// loadTemplate resolves name, or the built-in default for the
// platform when name is empty.
func loadTemplate(name string, descriptor platform.Descriptor) (*render.Template, error) {
	if name == "" {
		name = render.DefaultFor(descriptor)
	}
	return render.Load(name)
}

// passwordPrompter asks the operator for a password.
type passwordPrompter func(user string, endpoint session.Endpoint) (string, error)

// resolveCredentials builds SSH credentials from the target config.
// With no password and no key configured it falls back to prompt.
func resolveCredentials(target config.TargetConfig, endpoint session.Endpoint, getenv func(string) string, prompt passwordPrompter) (session.Credentials, error) {
	credentials := session.Credentials{
		User:     target.User,
		Password: target.ResolvePassword(getenv),
	}
	if credentials.User == "" {
		credentials.User = getenv("USER")
	}
	if credentials.User == "" {
		return session.Credentials{}, errors.New("target.user is required")
	}
	if target.PasswordEnv != "" && credentials.Password == "" {
		return session.Credentials{}, fmt.Errorf("target.password_env names %s, which is not set", target.PasswordEnv)
	}

	if target.PrivateKeyFile != "" {
		key, err := os.ReadFile(target.PrivateKeyFile)
		if err != nil {
			return session.Credentials{}, fmt.Errorf("reading private key: %w", err)
		}
		credentials.PrivateKey = key
		if target.PrivateKeyPassphraseEnv != "" {
			passphrase := getenv(target.PrivateKeyPassphraseEnv)
			if passphrase == "" {
				return session.Credentials{}, fmt.Errorf("target.private_key_passphrase_env names %s, which is not set", target.PrivateKeyPassphraseEnv)
			}
			credentials.PrivateKeyPassphrase = []byte(passphrase)
		}
	}

	if credentials.Password == "" && credentials.PrivateKey == nil {
		password, err := prompt(credentials.User, endpoint)
		if err != nil {
			return session.Credentials{}, err
		}
		credentials.Password = password
	}
	return credentials, nil
}

// promptPassword reads a password from the controlling terminal
// without echo.
func promptPassword(user string, endpoint session.Endpoint) (string, error) {
	descriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(descriptor) {
		return "", errors.New("no password or private key configured and stdin is not a terminal to prompt on")
	}
	fmt.Fprintf(os.Stderr, "%s@%s's password: ", user, endpoint.Host)
	password, err := term.ReadPassword(descriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
