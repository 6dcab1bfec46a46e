package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	logAdapter "github.com/tbonfort/be-big-data/internal/adapters/log"
	pubsubAdapter "github.com/tbonfort/be-big-data/internal/adapters/pubsub"
	"github.com/tbonfort/be-big-data/internal/dispatch"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

const helpDescription = `
Split a scene into tile windows and publish one composite request per tile.

Every request carries the full list of input datasets, so each worker
composites its window across the whole temporal stack.
`

var exampleUsage = strings.TrimSpace(`
  dispatch --inputs scenes.txt --project my-project --topic mosaic
  dispatch --inputs scenes.txt --limit 0 --dry-run
`)

type options struct {
	project     string
	topic       string
	inputs      string
	srcPrefix   string
	dstPrefix   string
	limit       int
	tileSize    int
	imageSize   int
	concurrency int
	retries     int
	dryRun      bool
	progress    bool
	logLevel    string
	logFormat   string
}

func defaultOptions() options {
	o := options{
		project:     os.Getenv("GCPPROJECT"),
		topic:       os.Getenv("MYNAME"),
		srcPrefix:   "/vsigs/tb-be-bigdata/t31tcj/",
		limit:       2,
		tileSize:    512,
		imageSize:   10980,
		concurrency: dispatch.DefaultConcurrency,
		retries:     3,
		progress:    true,
		logLevel:    "info",
		logFormat:   logAdapter.FormatConsole,
	}
	if bucket := os.Getenv("BUCKETNAME"); bucket != "" {
		o.dstPrefix = "gs://" + bucket + "/results/"
	}
	return o
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	o := defaultOptions()

	root := &cobra.Command{
		Use:          "dispatch",
		Short:        "Publish one median composite request per scene tile",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, cmd.OutOrStdout())
		},
	}

	f := root.Flags()
	f.StringVar(&o.project, "project", o.project, "Google Cloud project (default: $GCPPROJECT)")
	f.StringVar(&o.topic, "topic", o.topic, "Pub/Sub topic (default: $MYNAME)")
	f.StringVar(&o.inputs, "inputs", o.inputs, "file listing source dataset names, one per line (- for stdin); repeated names are kept and count once per listing in the median")
	f.StringVar(&o.srcPrefix, "src-prefix", o.srcPrefix, "prefix prepended to every dataset name")
	f.StringVar(&o.dstPrefix, "dst-prefix", o.dstPrefix, "destination prefix (default: gs://$BUCKETNAME/results/)")
	f.IntVar(&o.limit, "limit", o.limit, "publish at most this many tiles (0 = whole scene)")
	f.IntVar(&o.tileSize, "tile-size", o.tileSize, "tile width and height in pixels")
	f.IntVar(&o.imageSize, "image-size", o.imageSize, "scene width and height in pixels")
	f.IntVar(&o.concurrency, "concurrency", o.concurrency, "maximum in-flight publishes")
	f.IntVar(&o.retries, "retries", o.retries, "retries per failed publish")
	f.BoolVar(&o.dryRun, "dry-run", o.dryRun, "print requests as JSON lines instead of publishing")
	f.BoolVar(&o.progress, "progress", o.progress, "show a progress bar")
	f.StringVar(&o.logLevel, "log-level", o.logLevel, "log level (debug, info, warn, error)")
	f.StringVar(&o.logFormat, "log-format", o.logFormat, "log format (json or console)")
	_ = root.MarkFlagRequired("inputs")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dispatch:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	logger, err := logAdapter.New(nil, o.logFormat, o.logLevel)
	if err != nil {
		return err
	}

	reqs, err := buildRequests(o, os.Stdin, logger)
	if err != nil {
		return err
	}
	logger.Info("planned tiles",
		ports.Int("tiles", len(reqs)),
		ports.Int("tile_size", o.tileSize),
	)

	var publisher ports.Publisher
	if o.dryRun {
		publisher = dispatch.NewWriterPublisher(stdout)
	} else {
		if o.project == "" || o.topic == "" {
			return fmt.Errorf("%w: --project and --topic are required", domain.ErrInvalidConfig)
		}
		client, err := pubsub.NewClient(ctx, o.project)
		if err != nil {
			return fmt.Errorf("pubsub client: %w", err)
		}
		defer client.Close()
		p := pubsubAdapter.NewPublisher(client.Topic(o.topic))
		defer p.Stop()
		publisher = p
	}

	dopts := []dispatch.Option{
		dispatch.WithConcurrency(o.concurrency),
		dispatch.WithRetries(o.retries, dispatch.DefaultBackoffInitial, dispatch.DefaultBackoffMax),
	}
	if o.progress && !o.dryRun {
		bar := progressbar.Default(int64(len(reqs)), "publishing")
		defer bar.Finish()
		dopts = append(dopts, dispatch.WithOnDone(func(domain.Request, error) { _ = bar.Add(1) }))
	}

	start := time.Now()
	res, err := dispatch.New(publisher, logger, dopts...).Run(ctx, reqs)
	logger.Info("dispatch finished",
		ports.Uint64("published", res.Published),
		ports.Uint64("failed", res.Failed),
		ports.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d requests failed", res.Failed, len(reqs))
	}
	return nil
}

func buildRequests(o options, stdin io.Reader, logger ports.Logger) ([]domain.Request, error) {
	if o.dstPrefix == "" {
		return nil, fmt.Errorf("%w: --dst-prefix is required", domain.ErrInvalidConfig)
	}
	var in io.Reader = stdin
	if o.inputs != "-" {
		f, err := os.Open(o.inputs)
		if err != nil {
			return nil, fmt.Errorf("inputs: %w", err)
		}
		defer f.Close()
		in = f
	}
	names, err := dispatch.ReadInputs(in)
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no input datasets", domain.ErrInvalidRequest)
	}
	if dups := dispatch.Duplicates(names); len(dups) > 0 {
		logger.Warn("inputs list datasets more than once",
			ports.Int("datasets", len(names)),
			ports.String("repeated", strings.Join(dups, ",")),
		)
	}
	windows, err := dispatch.Plan(o.imageSize, o.tileSize, o.limit)
	if err != nil {
		return nil, err
	}
	return dispatch.Requests(dispatch.WithPrefix(o.srcPrefix, names), windows, o.dstPrefix), nil
}
