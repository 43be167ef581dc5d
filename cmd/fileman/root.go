package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/config"
	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/fsnode/localfs"
	"github.com/studio1767/fileman/internal/fsnode/s3fs"
	"github.com/studio1767/fileman/internal/logging"
	"github.com/studio1767/fileman/internal/metrics"
	"github.com/studio1767/fileman/internal/s3io"
	"github.com/studio1767/fileman/internal/worker"
)

// app carries what every command needs once flags and config are read.
type app struct {
	configFile  string
	store       string
	root        string
	logLevel    string
	metricsAddr string
	quiet       bool

	cfg     *config.Config
	client  s3io.Client
	metrics *http.Server
}

func (a *app) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (yaml or toml)")
	flags.StringVar(&a.store, "store", "", "store to work on: local or s3")
	flags.StringVarP(&a.root, "root", "r", "", "root directory, or key prefix for s3")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "don't show progress")
}

// setup loads the config, lets the flags override it, then starts logging
// and the metrics endpoint.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store = a.store
	}
	if flags.Changed("root") {
		if cfg.Store == config.StoreS3 {
			cfg.S3.Prefix = a.root
		} else {
			cfg.Root = a.root
		}
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = a.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	err = logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return errors.Errorf("starting logger: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := a.metrics.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logging.L().Info("serving metrics", zap.String("addr", addr))
}

func (a *app) teardown() {
	if a.metrics != nil {
		a.metrics.Close()
	}
	logging.Sync()
}

// s3Client connects to the configured bucket once and reuses the client.
func (a *app) s3Client() (s3io.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if a.cfg.S3.Bucket == "" {
		return nil, errors.New("no bucket configured")
	}

	client, err := s3io.NewClient(s3io.Options{
		Profile:        a.cfg.S3.Profile,
		Bucket:         a.cfg.S3.Bucket,
		Compress:       a.cfg.S3.Compress,
		Encrypt:        a.cfg.S3.Encrypt,
		IdentitiesFile: a.cfg.S3.IdentitiesFile,
		SecretsFile:    a.cfg.S3.SecretsFile,
	})
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// openRoot returns the directory every path argument is relative to.
func (a *app) openRoot() (fsnode.Node, error) {
	if a.cfg.Store == config.StoreS3 {
		client, err := a.s3Client()
		if err != nil {
			return nil, err
		}
		return s3fs.NewRoot(client, a.cfg.S3.Prefix, a.cfg.S3.Bucket), nil
	}
	return localfs.Open(a.cfg.Root)
}

func (a *app) resolve(paths ...string) (fsnode.Node, []fsnode.Node, error) {
	root, err := a.openRoot()
	if err != nil {
		return nil, nil, err
	}
	nodes, err := fsnode.ResolveAll(root, paths)
	if err != nil {
		return nil, nil, err
	}
	return root, nodes, nil
}

// newRunner builds a runner whose progress goes to out, on out's own
// goroutine.
func (a *app) newRunner(out *console) *worker.Runner {
	return worker.NewRunner(worker.Config{
		ChunkSize:  a.cfg.Progress.ChunkSize,
		Interval:   a.cfg.Progress.Interval(),
		Sink:       out.Sink,
		Dispatcher: out.loop,
		OnComplete: out.Finish,
		Logger:     logging.L(),
	})
}
