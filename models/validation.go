package models

import (
	"time"

	"gorm.io/gorm"
)

// Validation constrains the response given to an Answer. Rule combines the
// conditions by their rule keys, e.g. "A" or "A and B".
type Validation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AnswerID  uint      `json:"answer_id" gorm:"not null;index" validate:"required"`
	Rule      string    `json:"rule" gorm:"not null" validate:"required"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Answer     *Answer               `json:"answer,omitempty" validate:"-"`
	Conditions []ValidationCondition `json:"conditions,omitempty" gorm:"foreignKey:ValidationID;constraint:OnDelete:CASCADE" validate:"-"`
}

type ValidationCondition struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ValidationID uint      `json:"validation_id" gorm:"not null;index" validate:"required"`
	RuleKey      string    `json:"rule_key" gorm:"size:8;not null" validate:"required"`
	Operator     string    `json:"operator" gorm:"size:4;not null" validate:"required,oneof=== != < <= > >= =~"`
	IntegerValue *int      `json:"integer_value"`
	FloatValue   *float64  `json:"float_value"`
	StringValue  *string   `json:"string_value"`
	Regexp       *string   `json:"regexp"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (v *Validation) BeforeSave(tx *gorm.DB) error {
	return validateRecord("validation", v)
}

func (v *Validation) BeforeDelete(tx *gorm.DB) error {
	if v.ID == 0 {
		return ErrDeleteWithoutPrimaryKey
	}
	return cascadeSession(tx).Where("validation_id = ?", v.ID).Delete(&ValidationCondition{}).Error
}

func (c *ValidationCondition) BeforeSave(tx *gorm.DB) error {
	return validateRecord("validation condition", c)
}
