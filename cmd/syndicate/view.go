package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/ui"
)

func newViewCmd(a *app) *cobra.Command {
	var (
		src     sourceFlags
		seed    int64
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the animated fraud network",
		Long: `Open the fraud network page: the force-directed graph with a node
detail panel. Click a node to inspect it, drag nodes to rearrange them.

Keys: q quit, r reload, space pause, esc close panel, y copy label,
+/- zoom, 0 reset view, arrows pan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("view needs an interactive terminal; use `syndicate export` instead")
			}
			return runView(cmd.Context(), a, &src, seed, !noWatch)
		},
	}
	src.register(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 0, "placement seed (0 = random)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload --file when it changes")
	return cmd
}

func runView(ctx context.Context, a *app, src *sourceFlags, seed int64, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.Load(ctx)
	if err != nil {
		return err
	}
	source, err := src.resolve(ctx, a, st)
	if err != nil {
		return err
	}

	var program *tea.Program
	wc := ui.WorkerConfig{
		Source: source,
		Send: func(msg tea.Msg) {
			if program != nil {
				program.Send(msg)
			}
		},
		Timeout: a.cfg.Backend.Timeout,
		Logger:  a.log.Named("worker"),
	}
	if src.file != "" && watch {
		wc.WatchPath = src.file
	}
	worker, err := ui.NewDocumentWorker(wc)
	if err != nil {
		return err
	}

	m := ui.NewModel(viewOptions(a, source, seed, sess.Settings.Theme, worker))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	program = tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(runCtx),
	)

	a.log.Infow("Starting view", "source", source.Describe(), "user", sessionUser(sess.User))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "running terminal UI")
		}
		return nil
	})
	g.Go(func() error {
		defer worker.Stop()
		if err := worker.Start(); err != nil {
			program.Quit()
			return err
		}
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// viewOptions maps the configuration onto the page options.
func viewOptions(a *app, source ui.Source, seed int64, theme string, refresher ui.Refresher) ui.Options {
	opts := ui.Options{
		Canvas:        a.cfg.Canvas.Size(),
		Params:        a.cfg.Physics,
		Style:         a.cfg.Render,
		HitRadius:     a.cfg.Interaction.HitRadius,
		FPS:           a.cfg.Loop.FPS,
		Source:        source.Describe(),
		Refresher:     refresher,
		MarkdownStyle: markdownStyle(theme),
		Logger:        a.log.Named("ui"),
	}
	if seed != 0 {
		opts.Seeder = force.NewSeededRandom(seed)
	}
	return opts
}

// markdownStyle picks the glamour style for the dashboard theme setting.
func markdownStyle(theme string) string {
	if theme == "light" {
		return "light"
	}
	return "dark"
}
