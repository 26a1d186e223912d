package handlers

import (
	"context"
	"path/filepath"
	"time"

	"github.com/colonyforge/core/internal/ar"
	"github.com/colonyforge/core/internal/conference"
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/guard"
	"github.com/colonyforge/core/internal/intervention"
	"github.com/colonyforge/core/internal/projection"
)

// Handlers bundles the core's collaborators behind spec §6's operation
// list. Run-scoped operations (start_run, create_task, ...) append to the
// run vault, keyed by run_id; hive-scoped operations (start_conference,
// end_conference) append to a sibling vault rooted one level deeper so
// hive streams land at <vault>/hives/<hive_id>/events.jsonl per spec §6's
// file format.
type Handlers struct {
	runs          *ar.Vault
	hives         *ar.Vault
	conferences   *conference.Store
	interventions *intervention.Store
	verifier      *guard.Verifier
}

// New constructs Handlers rooted at vaultPath, using the given conference
// and intervention side stores.
func New(vaultPath string, conferences *conference.Store, interventions *intervention.Store) (*Handlers, error) {
	runs, err := ar.New(vaultPath)
	if err != nil {
		return nil, internalf(err, "open run vault")
	}
	hives, err := ar.New(filepath.Join(vaultPath, "hives"))
	if err != nil {
		return nil, internalf(err, "open hive vault")
	}
	return &Handlers{
		runs:          runs,
		hives:         hives,
		conferences:   conferences,
		interventions: interventions,
		verifier:      guard.NewEvidenceVerifier(),
	}, nil
}

func (h *Handlers) appendRun(ctx context.Context, runID string, typ events.Type, actor string, payload map[string]any, parents []string) (events.Event, error) {
	evt := events.New(typ, actor, runID, payload)
	if len(parents) == 0 {
		parents = inferParents(ctx, h.runs, runID)
	}
	evt.Parents = parents
	out, err := h.runs.Append(ctx, evt, runID)
	if err != nil {
		return events.Event{}, internalf(err, "append %s to run %s", typ, runID)
	}
	return out, nil
}

func (h *Handlers) appendHive(ctx context.Context, hiveID string, typ events.Type, actor string, payload map[string]any) (events.Event, error) {
	evt := events.New(typ, actor, "", payload)
	out, err := h.hives.Append(ctx, evt, hiveID)
	if err != nil {
		return events.Event{}, internalf(err, "append %s to hive %s", typ, hiveID)
	}
	return out, nil
}

func (h *Handlers) replayRun(ctx context.Context, runID string) ([]events.Event, error) {
	evts, err := h.runs.Replay(ctx, runID, time.Time{})
	if err != nil {
		return nil, internalf(err, "replay run %s", runID)
	}
	return evts, nil
}

// StartRun appends run.started, seeding the run's projection with goal.
func (h *Handlers) StartRun(ctx context.Context, runID, goal, actor string) (events.Event, error) {
	return h.appendRun(ctx, runID, events.RunStarted, actor, map[string]any{"goal": goal}, nil)
}

// ensureRunOpen rejects task/requirement creation on a run that has already
// reached a terminal state (spec §8 IN-8).
func (h *Handlers) ensureRunOpen(ctx context.Context, runID string) error {
	evts, err := h.replayRun(ctx, runID)
	if err != nil {
		return err
	}
	run := projection.BuildRun(evts, runID, "")
	switch run.State {
	case projection.RunCompleted, projection.RunFailed, projection.RunAborted:
		return conflictf("run %s is %s and rejects further task/requirement creation", runID, run.State)
	default:
		return nil
	}
}

// CreateTask appends task.created.
func (h *Handlers) CreateTask(ctx context.Context, runID, taskID, title string, metadata map[string]any, actor string) (events.Event, error) {
	if err := h.ensureRunOpen(ctx, runID); err != nil {
		return events.Event{}, err
	}
	evt, err := h.appendRun(ctx, runID, events.TaskCreated, actor, map[string]any{"title": title, "metadata": metadata}, nil)
	if err != nil {
		return events.Event{}, err
	}
	evt.TaskID = taskID
	return evt, nil
}

// AssignTask appends task.assigned.
func (h *Handlers) AssignTask(ctx context.Context, runID, taskID, workerID, actor string) (events.Event, error) {
	evt, err := h.appendRun(ctx, runID, events.TaskAssigned, actor, map[string]any{"worker_id": workerID}, nil)
	if err != nil {
		return events.Event{}, err
	}
	evt.TaskID = taskID
	evt.WorkerID = workerID
	return evt, nil
}

// ReportProgress appends task.progressed.
func (h *Handlers) ReportProgress(ctx context.Context, runID, taskID string, progress int, message, actor string) (events.Event, error) {
	evt, err := h.appendRun(ctx, runID, events.TaskProgressed, actor, map[string]any{"progress": progress, "message": message}, nil)
	if err != nil {
		return events.Event{}, err
	}
	evt.TaskID = taskID
	return evt, nil
}

// CompleteTask appends task.completed.
func (h *Handlers) CompleteTask(ctx context.Context, runID, taskID string, result map[string]any, actor string) (events.Event, error) {
	evt, err := h.appendRun(ctx, runID, events.TaskCompleted, actor, map[string]any{"result": result}, nil)
	if err != nil {
		return events.Event{}, err
	}
	evt.TaskID = taskID
	return evt, nil
}

// FailTask appends task.failed.
func (h *Handlers) FailTask(ctx context.Context, runID, taskID, reason string, recoverable bool, actor string) (events.Event, error) {
	evt, err := h.appendRun(ctx, runID, events.TaskFailed, actor, map[string]any{"error": reason, "recoverable": recoverable}, nil)
	if err != nil {
		return events.Event{}, err
	}
	evt.TaskID = taskID
	return evt, nil
}

// CreateRequirement appends requirement.created.
func (h *Handlers) CreateRequirement(ctx context.Context, runID, requirementID, description, actor string) (events.Event, error) {
	if err := h.ensureRunOpen(ctx, runID); err != nil {
		return events.Event{}, err
	}
	return h.appendRun(ctx, runID, events.RequirementCreated, actor, map[string]any{"requirement_id": requirementID, "description": description}, nil)
}

// ResolveRequirement appends requirement.approved or requirement.rejected.
// Resolving a requirement that has already been decided is rejected rather
// than appended again (spec §8 RT-2: resolving an approval twice is a no-op,
// the second resolution is rejected).
func (h *Handlers) ResolveRequirement(ctx context.Context, runID, requirementID string, approved bool, selectedOption, comment, decidedBy string) (events.Event, error) {
	evts, err := h.replayRun(ctx, runID)
	if err != nil {
		return events.Event{}, err
	}
	run := projection.BuildRun(evts, runID, "")
	if req, ok := run.Requirements[requirementID]; ok && req.State != projection.RequirementPending {
		return events.Event{}, conflictf("requirement %s already resolved as %s", requirementID, req.State)
	}

	typ := events.RequirementApproved
	if !approved {
		typ = events.RequirementRejected
	}
	return h.appendRun(ctx, runID, typ, decidedBy, map[string]any{
		"requirement_id":  requirementID,
		"selected_option": selectedOption,
		"comment":         comment,
	}, nil)
}

// Heartbeat appends system.heartbeat, keeping a run's liveness current.
func (h *Handlers) Heartbeat(ctx context.Context, runID, actor string) (events.Event, error) {
	return h.appendRun(ctx, runID, events.Heartbeat, actor, nil, nil)
}

// EmergencyStop appends system.emergency_stop followed by run.aborted.
func (h *Handlers) EmergencyStop(ctx context.Context, runID, reason, actor string) (events.Event, error) {
	if _, err := h.appendRun(ctx, runID, events.EmergencyStop, actor, map[string]any{"reason": reason}, nil); err != nil {
		return events.Event{}, err
	}
	return h.appendRun(ctx, runID, events.RunAborted, actor, map[string]any{"reason": reason}, nil)
}

// CompleteRun appends run.completed, or a conflict error naming every task
// still incomplete (spec §7: "conflict (incomplete_tasks_on_complete)"). With
// force=true, every incomplete task is first cancelled via an appended
// task.failed(reason="run force-completed") before run.completed is appended.
// Completing an already-completed run is a no-op (spec §8 RT-3): the
// existing run.completed event is returned rather than appending another.
func (h *Handlers) CompleteRun(ctx context.Context, runID, actor string, force bool) (events.Event, error) {
	evts, err := h.replayRun(ctx, runID)
	if err != nil {
		return events.Event{}, err
	}
	run := projection.BuildRun(evts, runID, "")
	if run.State == projection.RunCompleted {
		for i := len(evts) - 1; i >= 0; i-- {
			if evts[i].Type == events.RunCompleted {
				return evts[i], nil
			}
		}
	}
	var incomplete []string
	for _, t := range run.Tasks {
		if t.State != projection.TaskCompleted && t.State != projection.TaskFailed {
			incomplete = append(incomplete, t.ID)
		}
	}
	if len(incomplete) > 0 && !force {
		cerr := conflictf("run %s has %d incomplete tasks", runID, len(incomplete))
		cerr.IncompleteTaskIDs = incomplete
		return events.Event{}, cerr
	}
	for _, taskID := range incomplete {
		if _, err := h.FailTask(ctx, runID, taskID, "run force-completed", false, actor); err != nil {
			return events.Event{}, err
		}
	}
	return h.appendRun(ctx, runID, events.RunCompleted, actor, nil, nil)
}

// GetRun replays runID's stream and returns its current projection.
func (h *Handlers) GetRun(ctx context.Context, runID, goal string) (*projection.Run, error) {
	evts, err := h.replayRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return projection.BuildRun(evts, runID, goal), nil
}

// VerifyRun checks the hash chain of runID's event stream.
func (h *Handlers) VerifyRun(ctx context.Context, runID string) (bool, string, error) {
	ok, reason, err := h.runs.VerifyChain(ctx, runID)
	if err != nil {
		return false, "", internalf(err, "verify run %s", runID)
	}
	return ok, reason, nil
}

// VerifyColony runs the evidence verifier over submitted proof artifacts
// and appends the matching guard.* event for the combined verdict.
func (h *Handlers) VerifyColony(ctx context.Context, runID, colonyID string, evidence []guard.Evidence, actor string) (guard.Report, events.Event, error) {
	report := h.verifier.Verify(guard.Input{Evidence: evidence})
	evt, err := h.appendRun(ctx, runID, guard.EventForVerdict(report.Verdict), actor, map[string]any{
		"colony_id": colonyID,
		"verdict":   string(report.Verdict),
	}, nil)
	if err != nil {
		return guard.Report{}, events.Event{}, err
	}
	evt.ColonyID = colonyID
	return report, evt, nil
}

// GetGuardReport returns the most recent guard.* event recorded for runID.
func (h *Handlers) GetGuardReport(ctx context.Context, runID string) (events.Event, bool, error) {
	evts, err := h.replayRun(ctx, runID)
	if err != nil {
		return events.Event{}, false, err
	}
	for i := len(evts) - 1; i >= 0; i-- {
		switch evts[i].Type {
		case events.GuardPassed, events.GuardConditionalPassed, events.GuardFailed, events.GuardVerificationRequested:
			return evts[i], true, nil
		}
	}
	return events.Event{}, false, nil
}

// RecordDecision appends decision.recorded.
func (h *Handlers) RecordDecision(ctx context.Context, runID, decisionID, summary string, metadata map[string]any, actor string) (events.Event, error) {
	return h.appendRun(ctx, runID, events.DecisionRecorded, actor, map[string]any{
		"decision_id": decisionID,
		"summary":     summary,
		"metadata":    metadata,
	}, nil)
}

// Lineage is the bounded causal-ancestry result of GetLineage.
type Lineage struct {
	RootID    string
	Events    []events.Event
	Truncated bool
}

// GetLineage walks parents[] links backward from eventID across every
// stream in the run vault, bounded by maxDepth. Cycles and missing
// ancestors stop traversal along that branch; exceeding maxDepth sets
// Truncated rather than recursing forever (spec §9: cyclic causal graphs).
func (h *Handlers) GetLineage(ctx context.Context, eventID string, maxDepth int) (Lineage, error) {
	streams, err := h.runs.ListStreams()
	if err != nil {
		return Lineage{}, internalf(err, "list streams")
	}
	byID := make(map[string]events.Event)
	for _, streamID := range streams {
		evts, err := h.runs.Replay(ctx, streamID, time.Time{})
		if err != nil {
			return Lineage{}, internalf(err, "replay stream %s", streamID)
		}
		for _, e := range evts {
			byID[e.ID] = e
		}
	}

	root, ok := byID[eventID]
	if !ok {
		return Lineage{}, notFoundf("event %q not found", eventID)
	}

	visited := map[string]bool{eventID: true}
	result := []events.Event{root}
	truncated := false

	type frontierEntry struct {
		id    string
		depth int
	}
	frontier := []frontierEntry{{id: eventID, depth: 0}}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.depth >= maxDepth {
			e := byID[cur.id]
			if len(e.Parents) > 0 {
				truncated = true
			}
			continue
		}
		for _, parentID := range byID[cur.id].Parents {
			if visited[parentID] {
				continue
			}
			parent, ok := byID[parentID]
			if !ok {
				truncated = true
				continue
			}
			visited[parentID] = true
			result = append(result, parent)
			frontier = append(frontier, frontierEntry{id: parentID, depth: cur.depth + 1})
		}
	}

	return Lineage{RootID: eventID, Events: result, Truncated: truncated}, nil
}

// StartConference appends conference.started to the hive stream and
// registers the ACTIVE conference in the conference store.
func (h *Handlers) StartConference(ctx context.Context, hiveID, conferenceID, topic string, participants []string, initiatedBy string) (events.Event, error) {
	evt, err := h.appendHive(ctx, hiveID, events.ConferenceStarted, initiatedBy, map[string]any{
		"conference_id": conferenceID,
		"hive_id":       hiveID,
		"topic":         topic,
		"participants":  participants,
		"initiated_by":  initiatedBy,
	})
	if err != nil {
		return events.Event{}, err
	}
	if err := h.syncConference(ctx, hiveID, conferenceID); err != nil {
		return events.Event{}, err
	}
	return evt, nil
}

// EndConference appends conference.ended and finalizes the projection.
func (h *Handlers) EndConference(ctx context.Context, hiveID, conferenceID string, decisionsMade []string, summary string, durationSeconds int, actor string) (events.Event, error) {
	evt, err := h.appendHive(ctx, hiveID, events.ConferenceEnded, actor, map[string]any{
		"conference_id":    conferenceID,
		"decisions_made":   decisionsMade,
		"summary":          summary,
		"duration_seconds": durationSeconds,
	})
	if err != nil {
		return events.Event{}, err
	}
	if err := h.syncConference(ctx, hiveID, conferenceID); err != nil {
		return events.Event{}, err
	}
	return evt, nil
}

func (h *Handlers) syncConference(ctx context.Context, hiveID, conferenceID string) error {
	evts, err := h.hives.Replay(ctx, hiveID, time.Time{})
	if err != nil {
		return internalf(err, "replay hive %s", hiveID)
	}
	built := conference.BuildProjection(evts, conferenceID)
	if built == nil {
		return notFoundf("conference %q not found in hive %q", conferenceID, hiveID)
	}
	if _, ok := h.conferences.Get(conferenceID); ok {
		return h.conferences.Update(ctx, *built)
	}
	return h.conferences.Add(ctx, *built)
}

// UserIntervene records a direct user instruction to a colony, bypassing
// the Beekeeper.
func (h *Handlers) UserIntervene(ctx context.Context, colonyID, instruction, reason string, shareWithBeekeeper bool) (intervention.InterventionRecord, error) {
	record := intervention.InterventionRecord{
		EventID:            events.NewID(),
		ColonyID:           colonyID,
		Instruction:        instruction,
		Reason:             reason,
		ShareWithBeekeeper: shareWithBeekeeper,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.interventions.AddIntervention(ctx, record); err != nil {
		return intervention.InterventionRecord{}, internalf(err, "record intervention")
	}
	return record, nil
}

// QueenEscalate records a Queen's direct appeal to the user.
func (h *Handlers) QueenEscalate(ctx context.Context, colonyID string, escalationType intervention.EscalationType, summary, details string, suggestedActions []string, beekeeperContext string) (intervention.EscalationRecord, error) {
	record := intervention.EscalationRecord{
		EventID:          events.NewID(),
		ColonyID:         colonyID,
		EscalationType:   escalationType,
		Summary:          summary,
		Details:          details,
		SuggestedActions: suggestedActions,
		BeekeeperContext: beekeeperContext,
		Status:           intervention.EscalationPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.interventions.AddEscalation(ctx, record); err != nil {
		return intervention.EscalationRecord{}, internalf(err, "record escalation")
	}
	return record, nil
}

// BeekeeperFeedback records the Beekeeper's retrospective note on how an
// escalation was resolved, and marks that escalation resolved.
func (h *Handlers) BeekeeperFeedback(ctx context.Context, escalationID, resolution, lessonLearned string, adjustment map[string]any) (intervention.FeedbackRecord, error) {
	if _, ok := h.interventions.GetEscalation(escalationID); !ok {
		return intervention.FeedbackRecord{}, notFoundf("escalation %q not found", escalationID)
	}
	record := intervention.FeedbackRecord{
		EventID:             events.NewID(),
		EscalationID:        escalationID,
		Resolution:          resolution,
		BeekeeperAdjustment: adjustment,
		LessonLearned:       lessonLearned,
		CreatedAt:           time.Now().UTC(),
	}
	if err := h.interventions.AddFeedback(ctx, record); err != nil {
		return intervention.FeedbackRecord{}, internalf(err, "record feedback")
	}
	if _, err := h.interventions.ResolveEscalation(ctx, escalationID); err != nil {
		return intervention.FeedbackRecord{}, internalf(err, "resolve escalation")
	}
	return record, nil
}

// ListInterventions returns every intervention recorded for colonyID.
func (h *Handlers) ListInterventions(colonyID string) []intervention.InterventionRecord {
	return h.interventions.ListInterventions(colonyID)
}

// GetIntervention looks up a single intervention by its event id.
func (h *Handlers) GetIntervention(eventID string) (intervention.InterventionRecord, error) {
	rec, ok := h.interventions.GetIntervention(eventID)
	if !ok {
		return intervention.InterventionRecord{}, notFoundf("intervention %q not found", eventID)
	}
	return rec, nil
}

// ListEscalations returns every escalation for colonyID matching status.
func (h *Handlers) ListEscalations(colonyID string, status intervention.EscalationStatus) []intervention.EscalationRecord {
	return h.interventions.ListEscalations(colonyID, status)
}

// GetEscalation looks up a single escalation by its event id.
func (h *Handlers) GetEscalation(eventID string) (intervention.EscalationRecord, error) {
	rec, ok := h.interventions.GetEscalation(eventID)
	if !ok {
		return intervention.EscalationRecord{}, notFoundf("escalation %q not found", eventID)
	}
	return rec, nil
}
