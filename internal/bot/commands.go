package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Command describes a slash command for the transport's command menu
type Command struct {
	Name        string
	Description string
}

// Commands in menu order
var Commands = []Command{
	{Name: "start", Description: "Начать работу"},
	{Name: "help", Description: "Список команд"},
	{Name: "about", Description: "Профиль компании"},
	{Name: "strategy", Description: "Стратегия на текущую неделю"},
	{Name: "suggest", Description: "Предложить задачи на неделю"},
	{Name: "update_strategy", Description: "Изменить цель недели"},
	{Name: "show_tasks", Description: "Задачи: /show_tasks [new|in_progress|done]"},
	{Name: "cancel", Description: "Отменить текущее действие"},
}

func helpText() string {
	var text strings.Builder
	text.WriteString("Команды:\n")
	for _, c := range Commands {
		text.WriteString("/" + c.Name + " — " + c.Description + "\n")
	}
	text.WriteString("\nЛюбое другое сообщение уходит AI-ассистенту.")
	return text.String()
}

// maxListedTasks bounds one /show_tasks reply
const maxListedTasks = 20

// maxStatusButtons bounds the inline keyboard under the list
const maxStatusButtons = 10

// handleCommand runs a slash command. Any command abandons a pending action.
func (r *Router) handleCommand(ctx context.Context, ev Event) {
	if ev.Command != "cancel" {
		r.pending.Clear(ev.RequesterID)
	}

	switch ev.Command {
	case "start":
		r.send(ctx, ev.ChatID, msgStart)
	case "help":
		r.send(ctx, ev.ChatID, helpText())
	case "about":
		r.about(ctx, ev)
	case "strategy":
		r.currentStrategy(ctx, ev)
	case "suggest":
		r.suggest(ctx, ev)
	case "update_strategy":
		r.startGoalUpdate(ctx, ev)
	case "show_tasks":
		r.showTasks(ctx, ev)
	case "cancel":
		if r.pending.Clear(ev.RequesterID) {
			r.send(ctx, ev.ChatID, msgCancelled)
		} else {
			r.send(ctx, ev.ChatID, msgNothingCancel)
		}
	default:
		r.send(ctx, ev.ChatID, msgUnknownCommand)
	}
}

func (r *Router) about(ctx context.Context, ev Event) {
	if r.Strategy == nil {
		r.send(ctx, ev.ChatID, msgStrategyDisabled)
		return
	}

	profile, err := r.Strategy.Profile(ctx)
	if err != nil {
		log.Printf("Failed to read company profile: %v", err)
		r.send(ctx, ev.ChatID, apology(err))
		return
	}
	if len(profile) == 0 {
		r.send(ctx, ev.ChatID, msgNoProfile)
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("🏢 %s\n\n", r.opts.Company))
	for _, entry := range profile {
		text.WriteString(fmt.Sprintf("%s: %s\n", entry.Key, entry.Value))
	}
	r.send(ctx, ev.ChatID, strings.TrimRight(text.String(), "\n"))
}

func (r *Router) currentStrategy(ctx context.Context, ev Event) {
	if r.Strategy == nil {
		r.send(ctx, ev.ChatID, msgStrategyDisabled)
		return
	}

	now := r.now().In(r.opts.Location)
	week, err := r.Strategy.CurrentWeek(ctx, now)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		r.send(ctx, ev.ChatID, fmt.Sprintf(msgWeekNotFound, strategy.WeekLabel(now)))
		return
	case err != nil:
		log.Printf("Failed to read strategy plan: %v", err)
		r.send(ctx, ev.ChatID, apology(err))
		return
	}

	r.send(ctx, ev.ChatID, formatWeek(week))
}

func formatWeek(week strategy.Week) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("📅 Неделя %s\n", week.Label))
	for _, field := range []struct{ name, value string }{
		{"Фокус", week.Focus},
		{"Цель", week.Goal},
		{"Задачи", week.Tasks},
		{"Итоги", week.DoneSummary},
	} {
		if strings.TrimSpace(field.value) != "" {
			text.WriteString(fmt.Sprintf("%s: %s\n", field.name, field.value))
		}
	}
	return strings.TrimRight(text.String(), "\n")
}

func (r *Router) suggest(ctx context.Context, ev Event) {
	suggestions, err := r.Assistant.GenerateWeeklySuggestions(ctx)
	if err != nil {
		log.Printf("Failed to generate suggestions: %v", err)
		r.send(ctx, ev.ChatID, msgAIError)
		return
	}
	r.send(ctx, ev.ChatID, suggestions)
}

func (r *Router) startGoalUpdate(ctx context.Context, ev Event) {
	if r.Strategy == nil {
		r.send(ctx, ev.ChatID, msgStrategyDisabled)
		return
	}

	r.pending.Set(ev.RequesterID, PendingUpdateGoal)
	r.send(ctx, ev.ChatID, fmt.Sprintf(msgAskGoal, strategy.WeekLabel(r.now().In(r.opts.Location))))
}

// showTasks lists tasks with the status given as argument, or every open
// task without one, and offers buttons to advance the first few.
func (r *Router) showTasks(ctx context.Context, ev Event) {
	filter := strings.TrimSpace(ev.Args)

	records, err := r.Tasks.ListTasks(ctx, filter)
	if err != nil {
		log.Printf("Failed to list tasks: %v", err)
		r.send(ctx, ev.ChatID, msgTasksLoadError)
		return
	}

	if filter == "" {
		open := []tasks.Record{}
		for _, rec := range records {
			if rec.Status != tasks.StatusDone {
				open = append(open, rec)
			}
		}
		records = open
	}

	if len(records) == 0 {
		if filter == "" {
			r.send(ctx, ev.ChatID, msgNoOpenTasks)
		} else {
			r.send(ctx, ev.ChatID, fmt.Sprintf(msgNoTasks, filter))
		}
		return
	}

	r.sendChoices(ctx, ev.ChatID, formatTasks(records), statusButtons(records))
}

func formatTasks(records []tasks.Record) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("📋 Задачи (%d):\n", len(records)))
	for i, rec := range records {
		if i == maxListedTasks {
			text.WriteString(fmt.Sprintf("… и ещё %d\n", len(records)-maxListedTasks))
			break
		}
		text.WriteString(fmt.Sprintf("%d. %s — %s", i+1, rec.Text, rec.Status.Label()))
		if rec.Owner != "" {
			text.WriteString(fmt.Sprintf(" (%s)", rec.Owner))
		}
		text.WriteString("\n")
	}
	return strings.TrimRight(text.String(), "\n")
}

func statusButtons(records []tasks.Record) [][]Choice {
	var rows [][]Choice
	for i, rec := range records {
		if len(rows) == maxStatusButtons || i == maxListedTasks {
			break
		}
		if rec.Status == tasks.StatusDone {
			continue
		}
		next := rec.Status.Next()
		rows = append(rows, []Choice{{
			Label: fmt.Sprintf("%d → %s", i+1, next.Label()),
			Data:  statusData(rec, next),
		}})
	}
	return rows
}
