package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-notebook/pkg/client"
	"github.com/ekaya-inc/ekaya-notebook/pkg/config"
	"github.com/ekaya-inc/ekaya-notebook/pkg/logging"
	"github.com/ekaya-inc/ekaya-notebook/pkg/workspace"
)

// app carries flags and shared state for one invocation.
type app struct {
	server          string
	output          string
	verbose         bool
	credentialsPath string

	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
	cfg    *config.Config
	creds  *credentials
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "notebookctl",
		Short: "Command-line client for the ekaya-notebook research notebook",
		Long: `notebookctl manages projects, analyses and report sections on an
ekaya-notebook server.

Sign in once with 'notebookctl login'; the session is stored in the user
config directory and reused by later commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", "", "Server base URL (default: BASE_URL or the saved session's server)")
	flags.StringVarP(&a.output, "output", "o", "table", "Output format: table or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.credentialsPath, "credentials", "", "Session file (default: <user config dir>/ekaya-notebook/credentials.yaml)")

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newProjectsCmd(a),
		newAnalysesCmd(a),
		newDatasetsCmd(a),
		newSectionsCmd(a),
		newAnalyzeCmd(a),
		newSharedCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.output != "table" && a.output != "yaml" {
		return fmt.Errorf("unknown output format %q (want table or yaml)", a.output)
	}

	if a.verbose {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zcfg.OutputPaths = []string{"stderr"}
		logger, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}

	cfg, err := config.LoadFromEnv(Version)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.credentialsPath == "" {
		a.credentialsPath, err = defaultCredentialsPath()
		if err != nil {
			return err
		}
	}
	a.creds, err = loadCredentials(a.credentialsPath)
	if err != nil {
		return err
	}

	// --server, then BASE_URL, then the saved session, then the default.
	switch {
	case a.server != "":
	case os.Getenv("BASE_URL") != "":
		a.server = cfg.BaseURL
	case a.creds.Server != "":
		a.server = a.creds.Server
	default:
		a.server = cfg.BaseURL
	}
	a.server = strings.TrimRight(a.server, "/")
	return nil
}

// client returns an API client carrying the saved token. NOTEBOOK_TOKEN
// overrides the session file.
func (a *app) client() *client.Client {
	token := os.Getenv("NOTEBOOK_TOKEN")
	if token == "" {
		token = a.creds.AccessToken
	}
	return client.New(a.server, a.logger, client.WithToken(token))
}

// failures collects store notifications and echoes them to stderr.
type failures struct {
	mu     sync.Mutex
	w      io.Writer
	notice []workspace.Notification
}

func (f *failures) Notify(n workspace.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = append(f.notice, n)
	fmt.Fprintf(f.w, "%s: %s\n", n.Message, logging.SanitizeError(n.Err))
}

// err summarizes every notification received so far.
func (f *failures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notice) == 0 {
		return nil
	}
	errs := make([]error, len(f.notice))
	for i, n := range f.notice {
		errs[i] = fmt.Errorf("%s: %w", strings.ToLower(n.Message), n.Err)
	}
	return errors.Join(errs...)
}

// session is a loaded mirror for one command.
type session struct {
	client   *client.Client
	store    *workspace.Store
	failures *failures
}

// open loads the caller's projects into a fresh store.
func (a *app) open(ctx context.Context) (*session, error) {
	c := a.client()
	f := &failures{w: a.errOut}
	s := &session{client: c, store: workspace.NewStore(c, f, a.logger), failures: f}
	if err := s.store.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// openAnalysis loads the store and selects the analysis and its project.
func (a *app) openAnalysis(ctx context.Context, analysisID string) (*session, error) {
	id, err := parseID("analysis", analysisID)
	if err != nil {
		return nil, err
	}
	s, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	detail, err := s.client.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SelectProject(ctx, detail.ProjectID); err != nil {
		return nil, err
	}
	if err := s.store.SelectAnalysis(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

// settle waits for background calls and reports any that were rolled back.
func (s *session) settle() error {
	s.store.Wait()
	return s.failures.err()
}
