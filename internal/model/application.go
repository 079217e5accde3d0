package model

import "time"

// Status is the pipeline stage of an application.
type Status string

const (
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// Statuses lists every valid Status in pipeline order.
var Statuses = []Status{StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// Valid reports whether s is one of the closed set of statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// JobType is the employment arrangement. The zero value means "unset".
type JobType string

const (
	JobTypeFullTime   JobType = "Full-time"
	JobTypePartTime   JobType = "Part-time"
	JobTypeContract   JobType = "Contract"
	JobTypeInternship JobType = "Internship"
	JobTypeRemote     JobType = "Remote"
)

var JobTypes = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeRemote}

// Valid reports whether t is a known job type. The empty JobType is not
// valid on its own; callers treat it as "unset" before asking.
func (t JobType) Valid() bool {
	for _, v := range JobTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Application is a single job application owned by exactly one user.
//
// Optional text fields use the empty string as "unset" and are omitted from
// JSON. Salary and Deadline are pointers because zero is a meaningful salary
// and the zero time is not a meaningful deadline.
type Application struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user"`
	CompanyName     string     `json:"companyName"`
	JobTitle        string     `json:"jobTitle"`
	JobDescription  string     `json:"jobDescription,omitempty"`
	ApplicationDate time.Time  `json:"applicationDate"`
	Status          Status     `json:"status"`
	Salary          *float64   `json:"salary,omitempty"`
	Location        string     `json:"location,omitempty"`
	JobType         JobType    `json:"jobType,omitempty"`
	Source          string     `json:"source,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	ContactEmail    string     `json:"contactEmail,omitempty"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ApplicationInput is the writable part of an Application as it arrives in a
// create or update request. A nil field was omitted by the client: create
// applies the default, update leaves the stored value alone.
//
// There is deliberately no owner field; the owner always comes from the
// authenticated caller.
type ApplicationInput struct {
	CompanyName     *string    `json:"companyName"`
	JobTitle        *string    `json:"jobTitle"`
	JobDescription  *string    `json:"jobDescription"`
	ApplicationDate *time.Time `json:"applicationDate"`
	Status          *Status    `json:"status"`
	Salary          *float64   `json:"salary"`
	Location        *string    `json:"location"`
	JobType         *JobType   `json:"jobType"`
	Source          *string    `json:"source"`
	Notes           *string    `json:"notes"`
	Deadline        *time.Time `json:"deadline"`
	ContactEmail    *string    `json:"contactEmail"`
	Tags            []string   `json:"tags"`
}

// Stats is the per-user reporting snapshot.
type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	ByJobType    map[string]int `json:"byJobType"`
	Recent       int            `json:"recent"`
	ResponseRate float64        `json:"responseRate"`
}
