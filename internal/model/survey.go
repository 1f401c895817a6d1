package model

import (
	"time"

	"github.com/ro-rah/waltz/internal/validation"
)

// SurveyInstanceStatus tracks a survey instance through completion.
type SurveyInstanceStatus string

const (
	SurveyInstanceStatusNotStarted SurveyInstanceStatus = "NOT_STARTED"
	SurveyInstanceStatusInProgress SurveyInstanceStatus = "IN_PROGRESS"
	SurveyInstanceStatusCompleted  SurveyInstanceStatus = "COMPLETED"
	SurveyInstanceStatusApproved   SurveyInstanceStatus = "APPROVED"
	SurveyInstanceStatusRejected   SurveyInstanceStatus = "REJECTED"
	SurveyInstanceStatusWithdrawn  SurveyInstanceStatus = "WITHDRAWN"
)

// SurveyInstance is one survey issued against one entity.
type SurveyInstance struct {
	ID           int64                `json:"id"`
	SurveyRunID  int64                `json:"surveyRunId"`
	SurveyEntity EntityReference      `json:"surveyEntity"`
	Status       SurveyInstanceStatus `json:"status"`
	DueDate      time.Time            `json:"dueDate"`
}

// Person is a member of staff.
type Person struct {
	ID                   int64   `json:"id"`
	EmployeeID           string  `json:"employeeId"`
	DisplayName          string  `json:"displayName"`
	Email                string  `json:"email"`
	UserPrincipalName    *string `json:"userPrincipalName,omitempty"`
	DepartmentName       *string `json:"departmentName,omitempty"`
	Kind                 string  `json:"kind"`
	Title                *string `json:"title,omitempty"`
	OrganisationalUnitID *int64  `json:"organisationalUnitId,omitempty"`
	IsRemoved            bool    `json:"isRemoved"`
}

// SurveyInstanceRecipient grants a person the right to complete a survey instance.
type SurveyInstanceRecipient struct {
	ID             int64          `json:"id"`
	SurveyInstance SurveyInstance `json:"surveyInstance"`
	Person         Person         `json:"person"`
}

// SurveyInstanceRecipientCreateCommand adds a recipient.
type SurveyInstanceRecipientCreateCommand struct {
	SurveyInstanceID int64 `json:"surveyInstanceId" validate:"gt=0"`
	PersonID         int64 `json:"personId" validate:"gt=0"`
}

// Validate checks the command.
func (c SurveyInstanceRecipientCreateCommand) Validate() error {
	return validation.Struct(c)
}
