package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"umap-export/internal/commands"
	"umap-export/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	r := commands.NewRegistry("export")

	exportFlags := newFlags("export", stderr)
	exportConfig := exportFlags.String("config", config.DefaultPath, "config file (.yaml, .json or .toml)")
	r.Register("export", "export a world, its sublevels and assets", exportFlags, func() error {
		return export(*exportConfig, stderr)
	})

	listFlags := newFlags("list", stderr)
	listConfig := listFlags.String("config", config.DefaultPath, "config file (.yaml, .json or .toml)")
	match := listFlags.String("match", "", "glob over package paths, e.g. /Game/Maps/**")
	r.Register("list", "list dumped packages that contain a world", listFlags, func() error {
		return list(*listConfig, *match, stdout, stderr)
	})

	unpackFlags := newFlags("unpack", stderr)
	r.Register("unpack", "extract a zipped dump: unpack <zip> <dir>", unpackFlags, func() error {
		return unpack(unpackFlags.Args(), stdout)
	})

	if err := r.Execute(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintln(stderr, "umap:", err)
		if errors.Is(err, commands.ErrUnknown) {
			fmt.Fprintln(stderr, "commands:")
			r.Usage(stderr)
			return 2
		}
		return 1
	}
	return 0
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
