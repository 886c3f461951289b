package models

import "time"

const ProjectTable = "lsb_projects"

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planifié"
	ProjectActive    ProjectStatus = "actif"
	ProjectDone      ProjectStatus = "terminé"
	ProjectCancelled ProjectStatus = "annulé"
)

var ProjectStatuses = []ProjectStatus{ProjectPlanned, ProjectActive, ProjectDone, ProjectCancelled}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Project struct {
	ID         string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string        `gorm:"size:200;not null" json:"name"`
	ClientName string        `gorm:"size:200" json:"clientName"`
	Address    string        `gorm:"size:255" json:"address"`
	StartDate  *time.Time    `gorm:"type:date" json:"startDate,omitempty"`
	EndDate    *time.Time    `gorm:"type:date" json:"endDate,omitempty"`
	Status     ProjectStatus `gorm:"size:20;not null;default:'planifié'" json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (Project) TableName() string { return ProjectTable }
