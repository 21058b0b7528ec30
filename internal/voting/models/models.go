package models

import (
	"slices"

	regmodels "asamblea/internal/registry/models"
	dErrors "asamblea/pkg/domain-errors"
)

// QuestionType selects the answer shape a question accepts.
type QuestionType string

const (
	TypeUnique   QuestionType = "UNIQUE"
	TypeMultiple QuestionType = "MULTIPLE"
	TypeYesNo    QuestionType = "YES_NO"
	TypeOpen     QuestionType = "OPEN"
)

var validTypes = map[QuestionType]bool{
	TypeUnique:   true,
	TypeMultiple: true,
	TypeYesNo:    true,
	TypeOpen:     true,
}

func (t QuestionType) IsValid() bool { return validTypes[t] }

// QuestionStatus is the question lifecycle state. Only LIVE accepts votes.
type QuestionStatus string

const (
	StatusCreated  QuestionStatus = "CREATED"
	StatusLive     QuestionStatus = "LIVE"
	StatusFinished QuestionStatus = "FINISHED"
	StatusCanceled QuestionStatus = "CANCELED"
)

var validStatuses = map[QuestionStatus]bool{
	StatusCreated:  true,
	StatusLive:     true,
	StatusFinished: true,
	StatusCanceled: true,
}

func (s QuestionStatus) IsValid() bool { return validStatuses[s] }

// ParseStatus constructs a QuestionStatus from external input.
func ParseStatus(raw string) (QuestionStatus, error) {
	s := QuestionStatus(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid question status")
	}
	return s, nil
}

// statusTransitions: CREATED→LIVE→FINISHED, with LIVE→CANCELED and the
// explicit FINISHED→LIVE retake.
var statusTransitions = map[QuestionStatus][]QuestionStatus{
	StatusCreated:  {StatusLive},
	StatusLive:     {StatusFinished, StatusCanceled},
	StatusFinished: {StatusLive},
}

// CanTransition reports whether from→to is a legal question lifecycle move.
func CanTransition(from, to QuestionStatus) bool {
	return slices.Contains(statusTransitions[from], to)
}

// Answer is the tagged value recorded per registry. Exactly one branch is
// populated, keyed by the question type:
//
//	UNIQUE / YES_NO → Option
//	MULTIPLE        → Options
//	OPEN            → Text
type Answer struct {
	Option  string   `json:"option,omitempty"`
	Options []string `json:"options,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Matches reports whether this answer counts for the given option under the
// question type.
func (a Answer) Matches(qtype QuestionType, option string) bool {
	switch qtype {
	case TypeUnique, TypeYesNo:
		return a.Option == option
	case TypeMultiple:
		return slices.Contains(a.Options, option)
	default:
		return false
	}
}

// Question is one item put to a vote during an assembly. Answers is the vote
// ledger: registry → recorded answer.
type Question struct {
	ID         string
	AssemblyID string
	Text       string
	Type       QuestionType
	Options    []string
	Status     QuestionStatus
	Answers    map[regmodels.RegistryID]Answer
}

// ValidateAnswer enforces the answer shape against the question type at the
// transaction boundary; caller input is never trusted.
func (q Question) ValidateAnswer(a Answer) error {
	switch q.Type {
	case TypeUnique, TypeYesNo:
		if a.Option == "" || len(a.Options) > 0 || a.Text != "" {
			return dErrors.New(dErrors.CodeInvalidAnswerShape, "answer must carry exactly one option")
		}
		if !slices.Contains(q.Options, a.Option) {
			return dErrors.New(dErrors.CodeInvalidAnswerShape, "option is not part of the question")
		}
	case TypeMultiple:
		if len(a.Options) == 0 || a.Option != "" || a.Text != "" {
			return dErrors.New(dErrors.CodeInvalidAnswerShape, "answer must carry a non-empty option list")
		}
		for _, opt := range a.Options {
			if !slices.Contains(q.Options, opt) {
				return dErrors.New(dErrors.CodeInvalidAnswerShape, "option is not part of the question")
			}
		}
	case TypeOpen:
		if a.Text == "" || a.Option != "" || len(a.Options) > 0 {
			return dErrors.New(dErrors.CodeInvalidAnswerShape, "answer must carry non-empty text")
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "invalid question type")
	}
	return nil
}

// Answered reports whether the registry already holds an answer.
func (q Question) Answered(id regmodels.RegistryID) bool {
	_, ok := q.Answers[id]
	return ok
}
