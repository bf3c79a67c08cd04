package tasks

import "strings"

// DefaultTriggers are the action words that make a message look like a task
var DefaultTriggers = []string{
	"надо",
	"нужно",
	"сделать",
	"запланировать",
	"создать",
	"отправить",
	"добавить",
	"напомнить",
	"обсудить",
	"встреча",
	"встретиться",
}

// Classifier flags messages that contain a trigger word
type Classifier struct {
	triggers []string
}

// NewClassifier uses DefaultTriggers when none are given
func NewClassifier(triggers ...string) *Classifier {
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}

	c := &Classifier{}
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			c.triggers = append(c.triggers, t)
		}
	}
	return c
}

// LooksLikeTask reports whether text contains any trigger, case-insensitively
func (c *Classifier) LooksLikeTask(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range c.triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
