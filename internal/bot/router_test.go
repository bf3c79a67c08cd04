package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
	"github.com/alexrabarts/ceo-agent/internal/journal"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
	"github.com/alexrabarts/ceo-agent/internal/speech"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

type outMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Choices   [][]Choice
	Edited    bool
}

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	messages []outMessage
	acks     []string
	files    map[string][]byte
}

func (f *fakeMessenger) Send(ctx context.Context, chatID int64, text string) (int, error) {
	return f.SendChoices(ctx, chatID, text, nil)
}

func (f *fakeMessenger) SendChoices(ctx context.Context, chatID int64, text string, rows [][]Choice) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, outMessage{ChatID: chatID, MessageID: f.nextID, Text: text, Choices: rows})
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, outMessage{ChatID: chatID, MessageID: messageID, Text: text, Edited: true})
	return nil
}

func (f *fakeMessenger) AckAction(ctx context.Context, actionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, text)
	return nil
}

func (f *fakeMessenger) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	data, ok := f.files[fileID]
	if !ok {
		return nil, apperr.Transport("get file", errors.New("no such file"))
	}
	return data, nil
}

func (f *fakeMessenger) sent() []outMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outMessage(nil), f.messages...)
}

type fakeAssistant struct {
	reply string
	err   error
	asked []string
}

func (f *fakeAssistant) Ask(ctx context.Context, userText string) (string, error) {
	f.asked = append(f.asked, userText)
	return f.reply, f.err
}

func (f *fakeAssistant) GenerateWeeklySuggestions(ctx context.Context) (string, error) {
	return "Предложения: " + f.reply, f.err
}

type fakeTranscriber struct {
	text string
	err  error
	got  speech.Audio
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio speech.Audio) (string, error) {
	f.got = audio
	return f.text, f.err
}

var taskHeader = []string{"created_at", "text", "owner", "status", "notes", "id"}

type harness struct {
	router    *Router
	messenger *fakeMessenger
	assistant *fakeAssistant
	voice     *fakeTranscriber
	store     *sheets.MemoryStore
	manager   *tasks.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := sheets.NewMemoryStore()
	store.Seed("Tasks", taskHeader)
	store.Seed("CompanyProfile", []string{"key", "value"}, []string{"mission", "Рост"})
	store.Seed("StrategyPlan",
		[]string{"week", "focus", "goal", "tasks", "done_summary"},
		[]string{strategy.WeekLabel(time.Now()), "Продажи", "10 встреч", "звонки", "итоги"},
	)

	repo := strategy.NewRepository(store, "CompanyProfile", "StrategyPlan")
	manager := tasks.NewManager(store, "Tasks", repo, time.Local, "User")

	h := &harness{
		messenger: &fakeMessenger{files: map[string][]byte{"voice-1": []byte("ogg")}},
		assistant: &fakeAssistant{reply: "Ответ AI"},
		voice:     &fakeTranscriber{text: "обсудить бюджет"},
		store:     store,
		manager:   manager,
	}
	h.router = NewRouter(Deps{
		Messenger:   h.messenger,
		Assistant:   h.assistant,
		Tasks:       manager,
		Strategy:    repo,
		Transcriber: h.voice,
		Journal:     journal.New(store, "Log", time.Local),
	}, Options{
		Company:      "Acme",
		DefaultOwner: "User",
		Speech:       config.Speech{LanguageCode: "ru-RU", Encoding: "OGG_OPUS", SampleRateHertz: 48000},
	})
	return h
}

func text(requester int64, msg string) Event {
	return Event{Kind: EventText, RequesterID: requester, ChatID: requester, Name: "Anna", Text: msg}
}

func command(requester int64, name, args string) Event {
	return Event{Kind: EventCommand, RequesterID: requester, ChatID: requester, Command: name, Args: args}
}

// press builds the action event for the n-th button of msg, counted row by row
func press(requester int64, msg outMessage, n int) Event {
	ev := Event{
		Kind:        EventAction,
		RequesterID: requester,
		ChatID:      msg.ChatID,
		MessageID:   msg.MessageID,
		ActionID:    fmt.Sprintf("cb-%d", n),
	}
	i := 0
	for _, row := range msg.Choices {
		for _, c := range row {
			if i == n {
				ev.Data = c.Data
				return ev
			}
			i++
		}
	}
	return ev
}

func TestTextTaskScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, text(1, "надо отправить отчёт клиенту"))

	sent := h.messenger.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2: %+v", len(sent), sent)
	}
	if sent[0].Text != "Ответ AI" {
		t.Errorf("first message = %q, want the AI reply", sent[0].Text)
	}
	prompt := sent[1]
	if !strings.Contains(prompt.Text, "«надо отправить отчёт клиенту»") || len(prompt.Choices) != 1 || len(prompt.Choices[0]) != 2 {
		t.Fatalf("confirmation prompt = %+v", prompt)
	}
	for _, row := range prompt.Choices {
		for _, c := range row {
			if len(c.Data) > 64 {
				t.Errorf("callback data %q exceeds 64 bytes", c.Data)
			}
		}
	}

	h.router.Handle(ctx, press(1, prompt, 0))

	listed, err := h.manager.ListTasks(ctx, "new")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(listed) != 1 || listed[0].Text != "надо отправить отчёт клиенту" || listed[0].Owner != "Anna" {
		t.Errorf("tasks after confirm = %+v", listed)
	}

	last := h.messenger.sent()[2]
	if !last.Edited || last.MessageID != prompt.MessageID || !strings.Contains(last.Text, "Задача добавлена") {
		t.Errorf("prompt not edited to the outcome: %+v", last)
	}

	// A second press of the same button does not add the task twice
	h.router.Handle(ctx, press(1, prompt, 0))
	if listed, _ := h.manager.ListTasks(ctx, "new"); len(listed) != 1 {
		t.Errorf("task stored %d times", len(listed))
	}

	// Both turns of the conversation are journaled
	if rows := h.store.Rows("Log"); len(rows) != 2 || rows[0][1] != "Anna" || rows[1][1] != journal.AI {
		t.Errorf("journal = %v", rows)
	}
}

func TestTextWithoutTrigger(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(context.Background(), text(1, "Привет, как дела?"))

	sent := h.messenger.sent()
	if len(sent) != 1 || sent[0].Choices != nil {
		t.Errorf("sent = %+v, want only the AI reply", sent)
	}
}

func TestTextAIFailureStillReplies(t *testing.T) {
	h := newHarness(t)
	h.assistant.err = apperr.Upstream("openrouter", errors.New("502"))

	h.router.Handle(context.Background(), text(1, "нужно позвонить"))

	sent := h.messenger.sent()
	if len(sent) != 2 || sent[0].Text != msgAIError || sent[1].Choices == nil {
		t.Errorf("sent = %+v, want apology then confirmation prompt", sent)
	}
}

func TestRejectProposal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, text(1, "обсудить бюджет"))
	prompt := h.messenger.sent()[1]
	h.router.Handle(ctx, press(1, prompt, 1))

	for _, status := range []string{"", "new", "done"} {
		if listed, _ := h.manager.ListTasks(ctx, status); len(listed) != 0 {
			t.Errorf("ListTasks(%q) = %+v after reject", status, listed)
		}
	}
	if last := h.messenger.sent()[2]; !last.Edited || last.Text != msgTaskRejected {
		t.Errorf("last = %+v", last)
	}
}

func TestConfirmByAnotherRequester(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, text(1, "создать отчёт"))
	prompt := h.messenger.sent()[1]

	h.router.Handle(ctx, press(2, prompt, 0))
	if listed, _ := h.manager.ListTasks(ctx, ""); len(listed) != 0 {
		t.Fatalf("stranger confirmed a task: %+v", listed)
	}

	h.router.Handle(ctx, press(1, prompt, 0))
	if listed, _ := h.manager.ListTasks(ctx, ""); len(listed) != 1 {
		t.Errorf("owner could not confirm after stranger press: %+v", listed)
	}
}

func TestConfirmStoreFailureKeepsProposal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, text(1, "добавить клиента"))
	prompt := h.messenger.sent()[1]

	h.store.FailWrites["Tasks"] = errors.New("quota exceeded")
	h.router.Handle(ctx, press(1, prompt, 0))

	failure := h.messenger.sent()[2]
	if failure.Edited || !strings.Contains(failure.Text, "Не удалось сохранить задачу") {
		t.Errorf("failure message = %+v", failure)
	}

	delete(h.store.FailWrites, "Tasks")
	h.router.Handle(ctx, press(1, prompt, 0))
	if listed, _ := h.manager.ListTasks(ctx, "new"); len(listed) != 1 {
		t.Errorf("retry did not store the task: %+v", listed)
	}
}

func TestVoiceTranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.voice.err = apperr.Upstream("speech recognize", errors.New("deadline"))

	h.router.Handle(context.Background(), Event{Kind: EventVoice, RequesterID: 1, ChatID: 1, FileID: "voice-1"})

	sent := h.messenger.sent()
	if len(sent) != 1 || sent[0].Text != msgVoiceFailed {
		t.Errorf("sent = %+v, want exactly one failure notice", sent)
	}
	if rows := h.store.Rows("Tasks"); len(rows) != 1 {
		t.Errorf("task rows = %v, want header only", rows)
	}
}

func TestVoiceStoresTranscript(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, Event{Kind: EventVoice, RequesterID: 1, ChatID: 1, FileID: "voice-1"})

	if string(h.voice.got.Data) != "ogg" || h.voice.got.LanguageCode != "ru-RU" {
		t.Errorf("transcriber got %+v", h.voice.got)
	}

	sent := h.messenger.sent()
	if len(sent) != 2 || !strings.Contains(sent[0].Text, "обсудить бюджет") || sent[1].Text != msgVoiceSaved {
		t.Errorf("sent = %+v", sent)
	}

	listed, _ := h.manager.ListTasks(ctx, "new")
	if len(listed) != 1 || listed[0].Owner != "User" {
		t.Errorf("tasks = %+v, want transcript owned by the placeholder", listed)
	}
}

func TestVoiceFetchFailure(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(context.Background(), Event{Kind: EventVoice, RequesterID: 1, ChatID: 1, FileID: "missing"})

	if sent := h.messenger.sent(); len(sent) != 1 || sent[0].Text != msgVoiceFailed {
		t.Errorf("sent = %+v", sent)
	}
}

func TestShowTasksEmptyVersusFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.Seed("Tasks", taskHeader, []string{"2024-03-01", "open", "Anna", "new"})

	h.router.Handle(ctx, command(1, "show_tasks", "done"))
	if got := h.messenger.sent()[0].Text; got != fmt.Sprintf(msgNoTasks, "done") {
		t.Errorf("empty list reply = %q", got)
	}

	h.store.FailReads["Tasks"] = errors.New("timeout")
	h.router.Handle(ctx, command(1, "show_tasks", "done"))
	if got := h.messenger.sent()[1].Text; got != msgTasksLoadError {
		t.Errorf("failure reply = %q", got)
	}
}

func TestShowTasksStatusButtons(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.Seed("Tasks", taskHeader,
		[]string{"2024-03-01", "first", "Anna", "new", "", "id-1"},
		[]string{"2024-03-02", "second", "Boris", "done", "", "id-2"},
		[]string{"2024-03-03", "third", "Anna", "in_progress", "", "id-3"},
	)

	h.router.Handle(ctx, command(1, "show_tasks", ""))
	list := h.messenger.sent()[0]
	if strings.Contains(list.Text, "second") || !strings.Contains(list.Text, "first") || !strings.Contains(list.Text, "third") {
		t.Errorf("open task list = %q", list.Text)
	}
	if len(list.Choices) != 2 || list.Choices[0][0].Data != "status:id-1:in_progress" {
		t.Fatalf("buttons = %+v", list.Choices)
	}

	h.router.Handle(ctx, press(1, list, 1))
	done, _ := h.manager.ListTasks(ctx, "done")
	if len(done) != 2 || done[1].Text != "third" {
		t.Errorf("done tasks = %+v", done)
	}
}

func TestUpdateStrategyFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, command(1, "update_strategy", ""))
	if got := h.messenger.sent()[0].Text; !strings.Contains(got, strategy.WeekLabel(time.Now())) {
		t.Errorf("question = %q", got)
	}

	// Another requester keeps talking to the assistant meanwhile
	h.router.Handle(ctx, text(2, "как дела?"))
	if len(h.assistant.asked) != 1 {
		t.Fatalf("second requester was not routed to the assistant")
	}

	h.router.Handle(ctx, text(1, "20 встреч"))
	if len(h.assistant.asked) != 1 {
		t.Errorf("pending answer was sent to the assistant")
	}

	row := h.store.Rows("StrategyPlan")[1]
	if row[1] != "Продажи" || row[2] != "20 встреч" || row[3] != "звонки" || row[4] != "итоги" {
		t.Errorf("strategy row = %v", row)
	}

	// The pending action is one-shot
	h.router.Handle(ctx, text(1, "ещё вопрос"))
	if len(h.assistant.asked) != 2 {
		t.Errorf("follow-up text did not reach the assistant")
	}
}

func TestUpdateStrategyMissingWeek(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.Seed("StrategyPlan", []string{"week", "focus", "goal"}, []string{"W99", "x", "y"})

	h.router.Handle(ctx, command(1, "update_strategy", ""))
	h.router.Handle(ctx, text(1, "цель"))

	sent := h.messenger.sent()
	if got := sent[len(sent)-1].Text; !strings.Contains(got, "не найдена") {
		t.Errorf("reply = %q", got)
	}
	if row := h.store.Rows("StrategyPlan")[1]; row[2] != "y" {
		t.Errorf("row changed: %v", row)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Handle(ctx, command(1, "update_strategy", ""))
	h.router.Handle(ctx, command(1, "cancel", ""))
	h.router.Handle(ctx, command(1, "cancel", ""))

	sent := h.messenger.sent()
	if sent[1].Text != msgCancelled || sent[2].Text != msgNothingCancel {
		t.Errorf("sent = %+v", sent)
	}

	h.router.Handle(ctx, text(1, "привет"))
	if len(h.assistant.asked) != 1 {
		t.Error("text after cancel was not routed to the assistant")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"start", msgStart},
		{"help", "/show_tasks"},
		{"about", "mission: Рост"},
		{"strategy", "Фокус: Продажи"},
		{"suggest", "Предложения: Ответ AI"},
		{"nope", msgUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			h := newHarness(t)
			h.router.Handle(context.Background(), command(1, tt.command, ""))

			sent := h.messenger.sent()
			if len(sent) != 1 || !strings.Contains(sent[0].Text, tt.want) {
				t.Errorf("/%s replied %+v, want %q", tt.command, sent, tt.want)
			}
		})
	}
}

func TestCommandsReportStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailReads["CompanyProfile"] = errors.New("403")
	h.store.FailReads["StrategyPlan"] = errors.New("403")

	h.router.Handle(context.Background(), command(1, "about", ""))
	h.router.Handle(context.Background(), command(1, "strategy", ""))

	for _, msg := range h.messenger.sent() {
		if msg.Text != msgStoreReadError {
			t.Errorf("reply = %q, want store apology", msg.Text)
		}
	}
}

func TestUnknownAction(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(context.Background(), Event{Kind: EventAction, RequesterID: 1, ActionID: "x", Data: "bogus:1"})
	h.router.Handle(context.Background(), Event{Kind: EventAction, RequesterID: 1, ActionID: "y", Data: "status:id-1:someday"})

	if len(h.messenger.acks) != 2 || h.messenger.acks[0] != msgUnknownAction {
		t.Errorf("acks = %v", h.messenger.acks)
	}
}
