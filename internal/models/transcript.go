package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// TranscriptEntry is one answered question of a finished interview.
type TranscriptEntry struct {
	ID       string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Token    string    `gorm:"column:token;type:char(32);index:idx_transcript_token_pos,priority:1" json:"token"`
	Position int       `gorm:"column:position;type:integer;index:idx_transcript_token_pos,priority:2" json:"position"`
	Question string    `gorm:"column:question;type:text" json:"question"`
	Answer   string    `gorm:"column:answer;type:text" json:"answer"`
	Created  time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (TranscriptEntry) TableName() string { return "interview_transcripts" }

// EvaluationRecord stores the evaluation returned to the candidate for later admin review.
type EvaluationRecord struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Token          string         `gorm:"column:token;type:char(32);index" json:"token"`
	FinalScore     int            `gorm:"column:final_score;type:integer" json:"final_score"`
	HiringDecision string         `gorm:"column:hiring_decision;type:text" json:"hiring_decision"`
	Verdict        string         `gorm:"column:verdict;type:text" json:"verdict"`
	Strengths      pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Improvements   pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	IsFallback     bool           `gorm:"column:is_fallback" json:"is_fallback"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (EvaluationRecord) TableName() string { return "interview_evaluations" }
