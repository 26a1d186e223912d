// Command demo drives the S1 happy-path scenario end to end: start a run,
// create and complete one task, then complete the run, printing the
// resulting projection. Grounded on the teacher's cmd/demo/main.go wiring
// style (construct collaborators, register, run one scenario).
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/colonyforge/core/internal/conference"
	"github.com/colonyforge/core/internal/handlers"
	"github.com/colonyforge/core/internal/intervention"
)

func main() {
	ctx := context.Background()

	vaultPath, err := os.MkdirTemp("", "colonyforge-demo-*")
	if err != nil {
		log.Fatalf("demo: create vault dir: %v", err)
	}
	defer os.RemoveAll(vaultPath)

	conferences, err := conference.NewStore(vaultPath)
	if err != nil {
		log.Fatalf("demo: conference store: %v", err)
	}
	interventions, err := intervention.NewStore(vaultPath)
	if err != nil {
		log.Fatalf("demo: intervention store: %v", err)
	}
	h, err := handlers.New(vaultPath, conferences, interventions)
	if err != nil {
		log.Fatalf("demo: handlers: %v", err)
	}

	const (
		runID  = "run-demo-1"
		taskID = "task-create-file"
		goal   = "Write hello.txt with body 'hi'"
	)

	check := func(_ interface{}, err error) {
		if err != nil {
			log.Fatalf("demo: %v", err)
		}
	}

	check(h.StartRun(ctx, runID, goal, "queen"))
	check(h.CreateTask(ctx, runID, taskID, "create file", nil, "queen"))
	check(h.AssignTask(ctx, runID, taskID, "worker-1", "queen"))
	check(h.ReportProgress(ctx, runID, taskID, 50, "writing file", "worker-1"))
	check(h.CompleteTask(ctx, runID, taskID, map[string]any{"path": "hello.txt"}, "worker-1"))
	check(h.CompleteRun(ctx, runID, "queen", false))

	run, err := h.GetRun(ctx, runID, goal)
	if err != nil {
		log.Fatalf("demo: get run: %v", err)
	}
	ok, reason, err := h.VerifyRun(ctx, runID)
	if err != nil {
		log.Fatalf("demo: verify run: %v", err)
	}

	fmt.Printf("run %s: state=%s tasks_completed=%d event_count=%d\n",
		run.ID, run.State, len(run.CompletedTasks()), run.EventCount)
	if ok {
		fmt.Println("chain verifies")
	} else {
		fmt.Printf("chain verification failed: %s\n", reason)
	}
}
