package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/regsync/internal/admin"
	"github.com/danmuck/regsync/internal/config"
	"github.com/danmuck/regsync/internal/logging"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	mode       string
	remotePath string
	savePath   string
	wirePath   string
	peerExts   []string
	initKind   string
	force      bool
	unmap      bool
	dump       bool
	serve      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
		return 2
	}

	if opts.initKind != "" {
		if err := config.WriteTemplate(opts.configPath, opts.initKind, opts.force); err != nil {
			fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s config template to %s\n", opts.initKind, opts.configPath)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
		return 1
	}
	logging.ConfigureWith(logging.ProfileRuntime, cfg.LoggingConfig)
	logger := logging.Logger("regsyncctl")

	sess, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
		return 1
	}

	remotes := cfg.Remote
	if opts.remotePath != "" {
		extra, err := config.LoadRemote(opts.remotePath)
		if err != nil {
			fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
			return 1
		}
		remotes = append(remotes, extra...)
	}

	code := 0
	applied, err := sess.apply(remotes, opts.mode)
	if err != nil {
		fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
		code = 1
	}
	for _, result := range applied {
		printTranslation(stdout, result)
	}
	if opts.dump {
		spew.Fdump(stdout, applied)
	}

	if opts.savePath != "" {
		if err := sess.save(opts.savePath); err != nil {
			fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
			return 1
		}
		logger.Info().Str("path", opts.savePath).Msg("saved ID tables")
	}

	if opts.wirePath != "" {
		if err := sess.writeWire(opts.wirePath, opts.peerExts); err != nil {
			fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
			return 1
		}
		logger.Info().Str("path", opts.wirePath).Strs("peer_extensions", opts.peerExts).Msg("wrote ID table frames")
	}

	if opts.serve {
		srv := admin.New(sess.manager, admin.Options{ID: "regsyncctl", CorsOrigins: cfg.Admin.CorsOrigins})
		if err := srv.ListenAndServe(ctx, cfg.Admin.Addr); err != nil {
			fmt.Fprintf(stderr, "regsyncctl: admin: %v\n", err)
			code = 1
		}
	}

	if opts.unmap {
		if err := sess.manager.End(); err != nil {
			fmt.Fprintf(stderr, "regsyncctl: %v\n", err)
			code = 1
		}
		printTables(stdout, sess)
	}
	return code
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("regsyncctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "regsync.toml", "session config file")
	fs.StringVarP(&opts.mode, "mode", "m", "", "override the remap mode of every table (authoritative|remote)")
	fs.StringVarP(&opts.remotePath, "remote", "r", "", "extra file of [[remote]] ID tables to apply")
	fs.StringVarP(&opts.savePath, "save", "s", "", "write the reconciled ID tables to this file")
	fs.StringVarP(&opts.wirePath, "wire", "w", "", "write the reconciled ID tables as protocol frames to this file")
	fs.StringSliceVar(&opts.peerExts, "peer-ext", nil, "extensions the receiving peer supports (e.g. aliases)")
	fs.StringVar(&opts.initKind, "init", "", "write a config template (host|client) to --config and exit")
	fs.BoolVarP(&opts.force, "force", "f", false, "overwrite an existing file with --init")
	fs.BoolVarP(&opts.unmap, "unmap", "u", false, "end the session and print the restored IDs")
	fs.BoolVarP(&opts.dump, "dump", "d", false, "dump raw translations")
	fs.BoolVar(&opts.serve, "serve", false, "serve the admin inspection API until interrupted")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: regsyncctl [flags]\n\n")
		fmt.Fprintf(stderr, "Reconciles registry ID tables from a session config.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}
