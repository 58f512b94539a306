package models

import "gorm.io/gorm"

// The delete hooks run inside gorm's delete transaction, so each cascade
// commits or rolls back together with its owner. Dependents are removed
// bottom-up with hooks skipped; the ids are already known here.

func cascadeSession(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true, SkipHooks: true})
}

func deleteSections(tx *gorm.DB, sectionIDs []uint) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	var questionIDs []uint
	if err := cascadeSession(tx).Model(&Question{}).
		Where("survey_section_id IN ?", sectionIDs).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if err := deleteQuestions(tx, questionIDs); err != nil {
		return err
	}
	return cascadeSession(tx).Where("id IN ?", sectionIDs).Delete(&SurveySection{}).Error
}

func deleteQuestions(tx *gorm.DB, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	var answerIDs []uint
	if err := cascadeSession(tx).Model(&Answer{}).
		Where("question_id IN ?", questionIDs).Pluck("id", &answerIDs).Error; err != nil {
		return err
	}
	if err := deleteAnswers(tx, answerIDs); err != nil {
		return err
	}
	return cascadeSession(tx).Where("id IN ?", questionIDs).Delete(&Question{}).Error
}

func deleteAnswers(tx *gorm.DB, answerIDs []uint) error {
	if len(answerIDs) == 0 {
		return nil
	}
	if err := deleteValidationsOf(tx, answerIDs); err != nil {
		return err
	}
	return cascadeSession(tx).Where("id IN ?", answerIDs).Delete(&Answer{}).Error
}

// deleteValidationsOf removes every validation (and its conditions) owned by
// the given answers.
func deleteValidationsOf(tx *gorm.DB, answerIDs []uint) error {
	var validationIDs []uint
	if err := cascadeSession(tx).Model(&Validation{}).
		Where("answer_id IN ?", answerIDs).Pluck("id", &validationIDs).Error; err != nil {
		return err
	}
	if len(validationIDs) == 0 {
		return nil
	}
	if err := cascadeSession(tx).Where("validation_id IN ?", validationIDs).
		Delete(&ValidationCondition{}).Error; err != nil {
		return err
	}
	return cascadeSession(tx).Where("id IN ?", validationIDs).Delete(&Validation{}).Error
}
