// Package export renders questionnaires for output outside the editor.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/qb/pkg/model"
)

const untitled = "Untitled questionnaire"

// GenerateMarkdown renders q as a markdown document: a summary block, then one
// heading level per hierarchy level with questions as a numbered list.
func GenerateMarkdown(q model.Questionnaire) string {
	var sb strings.Builder

	title := strings.TrimSpace(q.Title)
	if title == "" {
		title = untitled
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if q.Description != "" {
		sb.WriteString(q.Description + "\n\n")
	}

	sb.WriteString("| Categories | Questions | Created |\n")
	sb.WriteString("|---|---|---|\n")
	created := "-"
	if q.CreatedAt != nil {
		created = q.CreatedAt.Format(time.DateOnly)
	}
	sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n\n", len(q.Categories), q.QuestionCount(), created))

	if len(q.Categories) == 0 {
		sb.WriteString("*No categories yet.*\n")
		return sb.String()
	}

	for _, c := range q.Categories {
		sb.WriteString(fmt.Sprintf("## %s\n\n", orPlaceholder(c.Name, "(unnamed category)")))
		for _, s := range c.SubCategories {
			sb.WriteString(fmt.Sprintf("### %s\n\n", orPlaceholder(s.Name, "(unnamed subcategory)")))
			for _, t := range s.Topics {
				sb.WriteString(fmt.Sprintf("#### %s\n\n", orPlaceholder(t.Name, "(unnamed topic)")))
				writeQuestions(&sb, t.Questions)
			}
		}
	}

	return sb.String()
}

func writeQuestions(sb *strings.Builder, questions []model.Question) {
	if len(questions) == 0 {
		sb.WriteString("*No questions.*\n\n")
		return
	}
	for i, q := range questions {
		answer := q.AnswerType
		if answer == "" {
			answer = model.DefaultAnswerType
		}
		sb.WriteString(fmt.Sprintf("%d. %s *(%s)*\n", i+1, orPlaceholder(q.Text, "(empty question)"), answer.Label()))
		if answer == model.AnswerMultipleChoice {
			for _, opt := range q.Options {
				sb.WriteString(fmt.Sprintf("    - %s\n", opt))
			}
		}
	}
	sb.WriteString("\n")
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(q model.Questionnaire, filename string) error {
	if err := os.WriteFile(filename, []byte(GenerateMarkdown(q)), 0o644); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}
