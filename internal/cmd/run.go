package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/identity"
	"github.com/chriscase/gitsvnsync/internal/scheduler"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
	gsync "github.com/chriscase/gitsvnsync/internal/sync"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon",
	Long:  `Poll SVN and the Git remote on a fixed interval, replaying changes in both directions until interrupted.`,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	sched := scheduler.New(engine, time.Duration(cfg.Daemon.PollIntervalSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("[gitsvnsync] daemon started, poll_interval=%ds", cfg.Daemon.PollIntervalSeconds)
	<-sigCh
	log.Printf("[gitsvnsync] shutdown signal received, stopping scheduler")

	cancel()
	sched.Stop()
	log.Printf("[gitsvnsync] shutdown complete")
	return nil
}

// buildEngine wires the sync engine's collaborators from a resolved
// config, opening the local git mirror if it already exists and
// cloning it otherwise.
func buildEngine(ctx context.Context, cfg *config.Config) (*gsync.Engine, error) {
	store, svn, git, remote, err := wireCollaborators(ctx, *cfg)
	if err != nil {
		return nil, err
	}

	mapper, err := identity.New(identity.Config{
		MappingFile: cfg.Identity.MappingFile,
		EmailDomain: cfg.Identity.EmailDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("build identity mapper: %w", err)
	}

	return gsync.New(*cfg, store, svn, git, remote, mapper), nil
}

// wireCollaborators builds the storage, SVN, Git, and remote-API
// clients shared by both the daemon and the initial import, opening
// the local git mirror if it already exists and cloning it otherwise.
func wireCollaborators(ctx context.Context, cfg config.Config) (*db.Store, *svnclient.Client, *gitrepo.Client, *githubapi.Client, error) {
	store, err := db.Open(dbPath(cfg))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open db: %w", err)
	}

	svn := svnclient.New(cfg.Svn.URL, cfg.Svn.Username, cfg.Svn.Password)

	git, err := openOrCloneGitRepo(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	owner, name := splitOwnerRepo(cfg.Remote.Repo)
	remote := githubapi.New(cfg.Remote.APIBaseURL, owner, name, cfg.Remote.Token)

	return store, svn, git, remote, nil
}

func openOrCloneGitRepo(ctx context.Context, cfg config.Config) (*gitrepo.Client, error) {
	path := gitMirrorPath(cfg)
	if git, err := gitrepo.Open(path); err == nil {
		return git, nil
	}

	url := gitrepo.DeriveRemoteURL(cfg.Remote.APIBaseURL, cfg.Remote.GitBaseURL, cfg.Remote.Repo)
	git, err := gitrepo.Clone(ctx, url, path, cfg.Remote.Token)
	if err != nil {
		return nil, fmt.Errorf("clone git mirror: %w", err)
	}
	return git, nil
}

func dbPath(cfg config.Config) string {
	return cfg.Daemon.DataDirectory + "/gitsvnsync.db"
}

func gitMirrorPath(cfg config.Config) string {
	return cfg.Daemon.DataDirectory + "/git-repo"
}

func splitOwnerRepo(repo string) (owner, name string) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return "", repo
	}
	return owner, name
}
