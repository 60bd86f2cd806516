package model

import (
	"fmt"
	"strings"
	"time"
)

// Questionnaire is a complete questionnaire template as exchanged with the API.
type Questionnaire struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OwnerID     string     `json:"ownerId,omitempty"`
	Categories  []Category `json:"categories"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Category is the top level of the questionnaire tree.
type Category struct {
	Name          string        `json:"name"`
	SubCategories []SubCategory `json:"subCategories"`
}

// SubCategory groups topics inside a category.
type SubCategory struct {
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

// Topic groups questions inside a subcategory.
type Topic struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Question is a leaf of the questionnaire tree.
type Question struct {
	Text       string     `json:"text"`
	AnswerType AnswerType `json:"answerType"`
	Options    []string   `json:"options,omitempty"` // multiple_choice only
}

// QuestionnaireSummary is the list-view projection of a questionnaire.
type QuestionnaireSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Validate checks if the questionnaire is fit to be submitted.
// Names and the title are free text; only structural metadata is checked here.
func (q *Questionnaire) Validate() error {
	for ci, c := range q.Categories {
		for si, s := range c.SubCategories {
			for ti, t := range s.Topics {
				for qi, question := range t.Questions {
					if question.AnswerType != "" && !question.AnswerType.IsValid() {
						return fmt.Errorf("question %d.%d.%d.%d: invalid answer type: %s",
							ci, si, ti, qi, question.AnswerType)
					}
				}
			}
		}
	}
	return nil
}

// DuplicateCategoryNames returns every category name (trimmed) that appears
// more than once, in first-seen order. Blank names are ignored.
func (q *Questionnaire) DuplicateCategoryNames() []string {
	seen := make(map[string]int)
	var dups []string
	for _, c := range q.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}

// QuestionCount returns the total number of questions in the questionnaire.
func (q *Questionnaire) QuestionCount() int {
	n := 0
	for _, c := range q.Categories {
		for _, s := range c.SubCategories {
			for _, t := range s.Topics {
				n += len(t.Questions)
			}
		}
	}
	return n
}

// AnswerType describes how a question is answered
type AnswerType string

const (
	AnswerText           AnswerType = "text"
	AnswerYesNo          AnswerType = "yes_no"
	AnswerScale          AnswerType = "scale"            // 1-5 rating
	AnswerMultipleChoice AnswerType = "multiple_choice"
)

// DefaultAnswerType is assigned to newly created questions.
const DefaultAnswerType = AnswerText

// AnswerTypes lists every answer type in display order.
func AnswerTypes() []AnswerType {
	return []AnswerType{AnswerText, AnswerYesNo, AnswerScale, AnswerMultipleChoice}
}

// IsValid returns true if the answer type is a recognized value
func (a AnswerType) IsValid() bool {
	switch a {
	case AnswerText, AnswerYesNo, AnswerScale, AnswerMultipleChoice:
		return true
	}
	return false
}

// Label returns a human readable name, e.g. "yes_no" -> "Yes / No".
func (a AnswerType) Label() string {
	switch a {
	case AnswerText:
		return "Free text"
	case AnswerYesNo:
		return "Yes / No"
	case AnswerScale:
		return "Scale (1-5)"
	case AnswerMultipleChoice:
		return "Multiple choice"
	default:
		return string(a)
	}
}
