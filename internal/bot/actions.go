package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Callback data prefixes. Data is "<prefix>:<payload>" and fits in 64 bytes.
const (
	actionConfirm = "confirm"
	actionReject  = "reject"
	actionStatus  = "status"
)

func (r *Router) handleAction(ctx context.Context, ev Event) {
	kind, payload, _ := strings.Cut(ev.Data, ":")

	switch kind {
	case actionConfirm:
		r.confirmProposal(ctx, ev, payload)
	case actionReject:
		r.rejectProposal(ctx, ev, payload)
	case actionStatus:
		r.changeStatus(ctx, ev, payload)
	default:
		log.Printf("Unknown action data %q from %d", ev.Data, ev.RequesterID)
		r.ack(ctx, ev.ActionID, msgUnknownAction)
	}
}

// takeProposal returns the proposal if it exists and belongs to the requester
func (r *Router) takeProposal(ctx context.Context, ev Event, token string) (tasks.Proposal, bool) {
	proposal, ok := r.proposals.Take(token)
	if !ok {
		r.ack(ctx, ev.ActionID, msgTaskExpired)
		r.edit(ctx, ev.ChatID, ev.MessageID, msgTaskExpired)
		return tasks.Proposal{}, false
	}
	if proposal.RequesterID != ev.RequesterID {
		r.proposals.Put(proposal)
		r.ack(ctx, ev.ActionID, msgTaskNotYours)
		return tasks.Proposal{}, false
	}
	return proposal, true
}

func (r *Router) confirmProposal(ctx context.Context, ev Event, token string) {
	proposal, ok := r.takeProposal(ctx, ev, token)
	if !ok {
		return
	}

	rec, err := r.Tasks.ConfirmTask(ctx, proposal)
	if err != nil {
		log.Printf("Failed to confirm task for %d: %v", ev.RequesterID, err)
		// Keep the prompt and its buttons so the requester can retry
		r.proposals.Put(proposal)
		r.ack(ctx, ev.ActionID, msgStoreWriteError)
		r.send(ctx, ev.ChatID, fmt.Sprintf(msgTaskSaveRetry, proposal.Text))
		return
	}

	r.ack(ctx, ev.ActionID, "✅")
	r.edit(ctx, ev.ChatID, ev.MessageID, fmt.Sprintf(msgTaskAdded, rec.Text))
}

func (r *Router) rejectProposal(ctx context.Context, ev Event, token string) {
	proposal, ok := r.takeProposal(ctx, ev, token)
	if !ok {
		return
	}

	r.Tasks.RejectTask(proposal)
	r.ack(ctx, ev.ActionID, "❌")
	r.edit(ctx, ev.ChatID, ev.MessageID, msgTaskRejected)
}

func (r *Router) changeStatus(ctx context.Context, ev Event, payload string) {
	ref, raw, ok := strings.Cut(payload, ":")
	status := tasks.ParseStatus(raw)
	if !ok || !status.Known() {
		r.ack(ctx, ev.ActionID, msgUnknownAction)
		return
	}

	rec, err := r.Tasks.SetStatus(ctx, ref, status)
	switch {
	case err == nil:
		text := fmt.Sprintf(msgStatusUpdated, rec.Text, rec.Status.Label())
		r.ack(ctx, ev.ActionID, rec.Status.Label())
		r.send(ctx, ev.ChatID, text)
	case errors.Is(err, apperr.ErrNotFound):
		r.ack(ctx, ev.ActionID, msgTaskNotFound)
		r.send(ctx, ev.ChatID, msgTaskNotFound)
	default:
		log.Printf("Failed to set status of %s: %v", ref, err)
		r.ack(ctx, ev.ActionID, apology(err))
		r.send(ctx, ev.ChatID, apology(err))
	}
}

func statusData(rec tasks.Record, status tasks.Status) string {
	return actionStatus + ":" + rec.Ref() + ":" + string(status)
}
