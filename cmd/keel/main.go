package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/keel-engine/keel/internal/config"
	"github.com/keel-engine/keel/internal/engine"
	"github.com/keel-engine/keel/internal/scene"
	"github.com/keel-engine/keel/internal/storage"
	"github.com/keel-engine/keel/internal/tui"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	duration   float64
	record     bool
	plot       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "keel",
		Short: "message-driven rigid body sandbox",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".keel", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	sandboxCmd := &cobra.Command{
		Use:   "sandbox [scene]",
		Short: "run a scene headless",
		Args:  cobra.ExactArgs(1),
		RunE:  runSandbox,
	}
	sandboxCmd.Flags().Float64Var(&duration, "time", 5.0, "duration in seconds")
	sandboxCmd.Flags().BoolVar(&record, "record", false, "save the run to the data directory")
	sandboxCmd.Flags().BoolVar(&plot, "plot", false, "plot the watched body height")

	watchCmd := &cobra.Command{
		Use:   "watch [scene]",
		Short: "run a scene with live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list available scenes",
		RunE:  listScenes,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(sandboxCmd, watchCmd, scenesCmd, runsCmd, plotCmd, exportCmd, initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func newEngine(cfg *config.Config) *engine.Engine {
	return engine.New(cfg.EngineOptions(newLogger()))
}

func runSandbox(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sc, err := scene.Get(args[0])
	if err != nil {
		return err
	}

	eng := newEngine(cfg)
	for _, msg := range sc.Messages {
		if err := eng.EnqueueMessage(msg); err != nil {
			return err
		}
	}

	steps := int(duration * float64(cfg.TickRate))
	trace := make([]storage.TracePoint, 0, steps)
	emitted := 0

	for i := 0; i < steps; i++ {
		out, err := eng.Integrate(engine.Ticks(1), eng.PopMessages())
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		emitted += len(out)

		center, err := eng.BodyCenter(sc.Watch)
		if err != nil {
			continue
		}
		vel, _ := eng.GetBodyLinearVelocity(sc.Watch)
		trace = append(trace, storage.TracePoint{
			Time:     float64(i+1) / float64(cfg.TickRate),
			Center:   center,
			Velocity: vel,
		})
	}

	fmt.Printf("scene: %s (%s)\n", sc.Name, sc.Description)
	fmt.Printf("steps: %d\n", steps)
	fmt.Printf("bodies: %d\n", eng.BodyCount())
	fmt.Printf("transform messages: %d\n", emitted)
	if len(trace) > 0 {
		last := trace[len(trace)-1]
		fmt.Printf("watched %s: center (%.2f %.2f %.2f), speed %.2f m/s\n",
			sc.Watch, last.Center.X(), last.Center.Y(), last.Center.Z(), last.Velocity.Len())
		fmt.Printf("grounded: %v\n", eng.IsBodyOnGround(sc.Watch))
	}

	if plot && len(trace) > 1 {
		heights := make([]float64, len(trace))
		for i, p := range trace {
			heights[i] = float64(p.Center.Y())
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(heights,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("watched body height"),
		))
	}

	if record {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Scene:    sc.Name,
			Watch:    sc.Watch.String(),
			TickRate: float64(cfg.TickRate),
			Bodies:   eng.BodyCount(),
		}, trace)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sc, err := scene.Get(args[0])
	if err != nil {
		return err
	}

	m := tui.NewModel(newEngine(cfg), sc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func listScenes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range scene.List() {
		sc, err := scene.Get(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", sc.Name, sc.Description)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tSTEPS\tBODIES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Bodies,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	trace, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(trace))

	heights := make([]float64, len(trace))
	speeds := make([]float64, len(trace))
	for i, p := range trace {
		heights[i] = float64(p.Center.Y())
		speeds[i] = float64(p.Velocity.Len())
	}

	fmt.Println(asciigraph.Plot(heights,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("height"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(speeds,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("speed"),
	))

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
