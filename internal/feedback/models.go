package feedback

import "time"

// Label is an operator's judgement of a verdict, used to curate
// retraining data for the classifier.
type Label string

const (
	LabelFalsePositive Label = "false_positive"
	LabelFalseNegative Label = "false_negative"
	LabelCorrect       Label = "correct"
)

// Valid reports whether l is one of the known feedback labels.
func (l Label) Valid() bool {
	switch l {
	case LabelFalsePositive, LabelFalseNegative, LabelCorrect:
		return true
	}
	return false
}

// Feedback records one operator judgement on an event's verdict.
type Feedback struct {
	ID        string
	EventID   string
	TenantID  string
	UserID    string
	Label     Label
	Notes     string
	CreatedAt time.Time
}
