package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/config"
	"github.com/kination/actorflow/internal/engine"
	"github.com/kination/actorflow/internal/executor"
	"github.com/kination/actorflow/internal/executor/actorpool"
	"github.com/kination/actorflow/internal/executor/local"
	"github.com/kination/actorflow/internal/executor/remote"
	"github.com/kination/actorflow/internal/runner"
	"github.com/kination/actorflow/internal/scheduler"
	"github.com/kination/actorflow/internal/store"
)

var remoteMode bool

var runCmd = &cobra.Command{
	Use:   "run [--remote] <workflow>",
	Short: "Run a registered workflow",
	Long: `Run a registered workflow and print its result.

By default actor environments are started in-process. With --remote,
actor tasks run on replicas in Kubernetes: the ActorEnvironment resource is
created or refreshed and the task is sent once a replica is ready.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(ctrl.SetupSignalHandler())
		defer cancel()
		return runWorkflow(ctx, cfg, args[0], remoteMode)
	},
}

func runWorkflow(ctx context.Context, cfg *config.Config, name string, remoteMode bool) error {
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	executors := executor.NewRegistry()
	executors.Register(local.New())
	mode := engine.ModeLocal
	if remoteMode {
		cl, err := newKubeClient()
		if err != nil {
			return err
		}
		executors.Register(remote.New(remote.Config{
			Client:        cl,
			Namespace:     cfg.Namespace,
			ServiceDomain: cfg.Remote.ServiceDomain,
			Port:          cfg.Remote.Port,
			ReadyTimeout:  cfg.Remote.ReadyTimeout(),
		}))
		mode = engine.ModeRemote
	} else {
		pool := actorpool.New(actorpool.Config{})
		pool.Start(ctx)
		executors.Register(pool)
	}
	defer executors.Cleanup(context.Background())

	r := runner.NewRunner(executors, scheduler.NewScheduler(cfg.SchedulerConfig()), cfg.RunnerConfig())
	eng := engine.New(engine.Config{Registry: reg, Runner: r, Store: st, Mode: mode})

	fmt.Printf("🚀 Running workflow %s (%s)...\n", name, mode)
	run, err := eng.Run(ctx, name)
	if run != nil {
		printRun(run)
	}
	if err != nil {
		return fmt.Errorf("workflow %s failed: %w", name, err)
	}
	fmt.Printf("✅ Result: %s\n", string(run.Result))
	return nil
}

func printRun(run *store.WorkflowRun) {
	fmt.Printf("   - Run ID: %s\n", run.RunID)
	for _, task := range run.TaskRuns {
		mark := "✔"
		detail := string(task.Output)
		if task.State != actorsv1.StateCompleted {
			mark = "✘"
			detail = task.Message
		}
		where := "function"
		if task.Env != "" {
			where = task.Env
		}
		fmt.Printf("   %s %s %s on %s -> %s\n", mark, task.NodeID, task.TaskName, where, truncate(detail, 120))
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workflows and actor environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := newRegistry(cfg)
		if err != nil {
			return err
		}

		fmt.Println("📋 Workflows:")
		for _, name := range reg.Workflows() {
			fmt.Printf("   - %s\n", name)
		}
		fmt.Println("🎭 Actor environments:")
		for _, env := range reg.Environments() {
			req := env.Requests()
			fmt.Printf("   - %s (replicas %d, ttl %s, cpu %s, mem %s", env.Name(), env.ReplicaCount(), env.TTL(), req.CPU, req.Mem)
			if req.GPU != "" {
				fmt.Printf(", gpu %s", req.GPU)
			}
			fmt.Printf(")\n     image %s, tasks %s\n", env.Image(), strings.Join(reg.TasksFor(env.Name()), ", "))
		}
		return nil
	},
}

var (
	runsLimit    int
	runsWorkflow string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recorded workflow runs",
	Long:  `Show recorded workflow runs, newest first. Runs are only kept across invocations with the sqlite store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), runsWorkflow, store.ListOptions{Limit: runsLimit})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("⚠️  No runs recorded")
			return nil
		}
		for _, run := range runs {
			duration := "-"
			if run.EndTime != nil {
				duration = run.EndTime.Sub(run.StartTime).Round(time.Millisecond).String()
			}
			fmt.Printf("%s  %-12s %-9s %-6s %s  %s\n", run.RunID, run.Workflow, run.State, run.Mode,
				run.StartTime.Local().Format(time.DateTime), duration)
		}
		return nil
	},
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	runCmd.Flags().BoolVar(&remoteMode, "remote", false, "Run actor tasks on Kubernetes replicas")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVar(&runsWorkflow, "workflow", "", "Only show runs of this workflow")
}
