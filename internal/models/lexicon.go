package models

import "time"

// LexiconTerm is a single substitution entry within a named lexicon.
// At most one active row exists per (LexiconID, NormalizedTerm); deletion
// is soft (Active=false) so history and cache invalidation stay coherent.
type LexiconTerm struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	LexiconID      string    `json:"lexicon_id" gorm:"type:varchar(100);not null;index:idx_lexicon_active"`
	Term           string    `json:"term" gorm:"type:varchar(200);not null"`
	NormalizedTerm string    `json:"normalized_term" gorm:"type:varchar(200);not null"`
	Replacement    string    `json:"replacement" gorm:"type:varchar(500);not null"`
	Active         bool      `json:"active" gorm:"not null;default:true;index:idx_lexicon_active"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (LexiconTerm) TableName() string { return "lexicon_terms" }
