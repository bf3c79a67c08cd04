package llm

import (
	"fmt"
	"strings"
)

// PromptBuilder centralizes the prompts sent to the models
type PromptBuilder struct {
	company string
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder(company string) *PromptBuilder {
	if company == "" {
		company = "CEO"
	}
	return &PromptBuilder{company: company}
}

// Persona is the fixed preamble of every system prompt
func (p *PromptBuilder) Persona() string {
	return fmt.Sprintf(`Ты — AI-CEO ассистент компании «%s». Ты помогаешь руководителю ставить задачи, `+
		`следить за стратегией и принимать решения. Отвечай по-русски, кратко и по делу. `+
		`Опирайся на профиль компании и стратегический план ниже.`, p.company)
}

// DailyReport is the static market-analysis prompt used by the daily job
func (p *PromptBuilder) DailyReport() string {
	return `Подготовь краткий утренний обзор рынка для руководителя:
1. Главные новости отрасли и экономики за последние сутки
2. Возможности для компании
3. Риски, на которые стоит обратить внимание
4. Одна рекомендация на сегодня

Формат: короткие пункты, не более 200 слов.`
}

// WeeklySuggestions folds the completed tasks into a planning prompt
func (p *PromptBuilder) WeeklySuggestions(done []string) string {
	var prompt strings.Builder

	prompt.WriteString("Вот задачи, выполненные командой за прошедший период:\n")
	if len(done) == 0 {
		prompt.WriteString("(выполненных задач нет)\n")
	}
	for _, task := range done {
		prompt.WriteString(fmt.Sprintf("- %s\n", task))
	}

	prompt.WriteString("\nНа их основе предложи 3–5 задач на следующую неделю. ")
	prompt.WriteString("Для каждой укажи цель и ожидаемый результат. Будь конкретен.")

	return prompt.String()
}
