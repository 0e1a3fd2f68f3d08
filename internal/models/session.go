package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultNumQuestions = 6

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is one interview invitation. Token is the only credential the candidate holds.
type Session struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Token string             `bson:"token" json:"token"`

	ResumeText     string `bson:"resume_text" json:"resumeText"`
	JobDescription string `bson:"job_description" json:"jdText"`
	Email          string `bson:"email" json:"email"`
	NumQuestions   int    `bson:"num_questions" json:"numQuestions"`

	ResumeFile *ResumeRef    `bson:"resume_file,omitempty" json:"resumeFile,omitempty"`
	Status     SessionStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"` // TTL index
}

// ResumeRef describes the original upload. The archived copy, when any, is
// tracked in SQL (ResumeFile).
type ResumeRef struct {
	FileName string `bson:"file_name" json:"fileName"`
	MimeType string `bson:"mime_type" json:"mimeType"`
	Size     int64  `bson:"size" json:"size"`
}

// TargetQuestions never reports less than one question.
func (s *Session) TargetQuestions() int {
	if s == nil || s.NumQuestions <= 0 {
		return DefaultNumQuestions
	}
	return s.NumQuestions
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionView is the fetch-session payload.
type SessionView struct {
	CVText       string `json:"cvText"`
	ResumeText   string `json:"resumeText"`
	JDText       string `json:"jdText"`
	NumQuestions int    `json:"numQuestions"`
	Email        string `json:"email"`
	CreatedAt    string `json:"createdAt"`
}

func (s *Session) View() SessionView {
	return SessionView{
		CVText:       s.ResumeText,
		ResumeText:   s.ResumeText,
		JDText:       s.JobDescription,
		NumQuestions: s.TargetQuestions(),
		Email:        s.Email,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// QAPair is one asked question and the answer recorded for it.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
