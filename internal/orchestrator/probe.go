package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/okanban/okanban/internal/model"
)

// baseInterval is the probe loop's tick rate at or below
// maxTasksBeforeScaling live tasks (spec.md §4.G.5).
const baseInterval = 3 * time.Second

// RunProbeLoop runs the single cooperative status-observation scheduler
// until ctx is cancelled. Each tick it snapshots the live (non-archived,
// session-bearing) task set in a randomized order, so no task is
// permanently first or last in line, and probes each one through a rate
// limiter that spreads the pass across the tick interval once the task
// count exceeds maxTasksBeforeScaling — trading per-task freshness for
// bounded per-tick tmux load rather than falling behind indefinitely.
func (o *Orchestrator) RunProbeLoop(ctx context.Context, maxTasksBeforeScaling int) error {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.probeOnce(ctx, maxTasksBeforeScaling)
		}
	}
}

func (o *Orchestrator) probeOnce(ctx context.Context, maxTasksBeforeScaling int) {
	tasks, err := o.store.ListTasks()
	if err != nil {
		log.Warn("probe loop: list tasks failed", "error", err)
		return
	}

	var live []*model.Task
	for _, t := range tasks {
		if !t.Archived && t.TmuxSessionName != "" {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return
	}

	rand.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })

	limiter := o.probeLimiter(len(live), maxTasksBeforeScaling)

	for _, task := range live {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		o.probeTask(task)
	}
}

// probeLimiter sizes a token-bucket so that, once n exceeds the scaling
// threshold, probes are capped at maxTasksBeforeScaling per base
// interval: a full pass over n tasks then takes about
// n/maxTasksBeforeScaling base intervals, so the per-task interval grows
// linearly with n while the probe rate stays bounded. Below the
// threshold it allows a burst wide enough that every task is probed
// essentially immediately, matching the unthrottled behavior spec.md
// describes for small boards.
func (o *Orchestrator) probeLimiter(n, maxTasksBeforeScaling int) *rate.Limiter {
	if n <= maxTasksBeforeScaling {
		return rate.NewLimiter(rate.Inf, n)
	}
	limit := maxTasksBeforeScaling
	if limit < 1 {
		limit = 1
	}
	perSecond := float64(limit) / baseInterval.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func (o *Orchestrator) probeTask(task *model.Task) {
	capturedAt := timeNow()
	status := o.probe.Classify(task.TmuxSessionName)
	_, err := o.store.UpdateTaskStatusIfNewer(task.ID, status, model.SourceProbe, "", capturedAt)
	if err != nil {
		log.Warn("probe loop: write status failed", "task_id", task.ID, "error", err)
	}

	if task.OpencodeSessionID == "" {
		o.detectAgentSessionID(task)
	}
}

// detectAgentSessionID scrapes the pane for the agent's session id once
// it becomes visible after launch, populating opencode_session_id so a
// later AttachTask can resume the same conversation instead of starting
// fresh (spec.md §4.E, the Orchestrator being the sole writer of this
// field).
func (o *Orchestrator) detectAgentSessionID(task *model.Task) {
	id, err := o.agent.DetectAgentSessionID(task.TmuxSessionName)
	if err != nil {
		log.Warn("probe loop: detect agent session id failed", "task_id", task.ID, "error", err)
		return
	}
	if id == "" {
		return
	}
	if err := o.store.UpdateTaskRuntime(task.ID, task.TmuxSessionName, task.WorktreePath, id); err != nil {
		log.Warn("probe loop: persist agent session id failed", "task_id", task.ID, "error", err)
	}
}

// timeNow is a seam so tests could inject a fixed clock; production
// always uses the real time.
var timeNow = time.Now
