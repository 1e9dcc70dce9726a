// Command postsimport converts the scraper's JSON output into the Parquet
// file served by shopassist.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/config"
	logpkg "github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/repository/source"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}

	logger, err := logpkg.NewLogger(config.GetEnv())
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	n, err := importPosts(opts.inputs, opts.output)
	if err != nil {
		logger.Error("import failed", zap.Error(err))
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}

	logger.Info("posts imported",
		zap.Strings("inputs", opts.inputs),
		zap.String("output", opts.output),
		zap.Int("posts", n),
	)
	fmt.Fprintf(stdout, "wrote %d posts to %s\n", n, opts.output)
	return exitOK
}

type options struct {
	inputs []string
	output string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("postsimport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: postsimport --in scraped_7d.json [--in more.json] [--out all_channel_posts.parquet]")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	inputs := fs.StringArrayP("in", "i", nil, "Scraper JSON file (repeatable, concatenated in order)")
	output := fs.StringP("out", "o", config.DefaultSourcePath, "Parquet file to write")

	if err := fs.Parse(args); err != nil {
		return options{}, err //nolint:wrapcheck // pflag errors are already user-facing
	}
	if len(*inputs) == 0 {
		return options{}, fmt.Errorf("%w: at least one --in file is required", errUsage)
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if *output == "" {
		return options{}, fmt.Errorf("%w: --out must not be empty", errUsage)
	}
	return options{inputs: *inputs, output: *output}, nil
}

// importPosts reads every input, assigns missing ids and writes the Parquet file.
func importPosts(inputs []string, output string) (int, error) {
	var posts []source.Post
	for _, in := range inputs {
		batch, err := readPosts(in)
		if err != nil {
			return 0, err
		}
		posts = append(posts, batch...)
	}

	source.AssignIDs(posts)

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := source.WritePosts(output, posts); err != nil {
		return 0, fmt.Errorf("write posts: %w", err)
	}
	return len(posts), nil
}

func readPosts(path string) ([]source.Post, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var posts []source.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return posts, nil
}
