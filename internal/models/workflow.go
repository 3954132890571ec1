package models

import "time"

// WorkflowStage is one step of the automated application agent.
type WorkflowStage struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Stage identifiers in execution order.
const (
	StageStart    = "start"
	StageFetch    = "fetch-data"
	StageLogin    = "login"
	StageAutoFill = "auto-fill"
	StageCaptcha  = "captcha"
	StagePayment  = "payment"
	StageSuccess  = "success"
	StageDownload = "download"
)

// WorkflowStages is the fixed agent sequence.
var WorkflowStages = []WorkflowStage{
	{ID: StageStart, Label: "Agent Start Application", Description: "Initializing AI agent for automated application process"},
	{ID: StageFetch, Label: "Fetch User Personal Data", Description: "Retrieving your profile and academic credentials from database"},
	{ID: StageLogin, Label: "Automated Admission Login", Description: "AI agent logging into university admission portal automatically"},
	{ID: StageAutoFill, Label: "Auto Fill Form", Description: "Populating application form with your information automatically"},
	{ID: StageCaptcha, Label: "Solve Captcha", Description: "AI agent solving security verification challenges"},
	{ID: StagePayment, Label: "Make Payment", Description: "Processing application fee payment securely"},
	{ID: StageSuccess, Label: "Application Successful", Description: "Application submitted successfully to university portal"},
	{ID: StageDownload, Label: "Download Admit Card", Description: "Fetching your admission card from university system"},
}

// StageIndex returns the position of a stage id, or -1.
func StageIndex(id string) int {
	for i, stage := range WorkflowStages {
		if stage.ID == id {
			return i
		}
	}
	return -1
}

// StageState is the display state of a stage relative to the pointer.
type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StagePending   StageState = "pending"
)

// WorkflowDecision is the outcome of resolving workflow entry.
type WorkflowDecision string

const (
	WorkflowAlreadyComplete           WorkflowDecision = "already_complete"
	WorkflowResume                    WorkflowDecision = "resume"
	WorkflowCreate                    WorkflowDecision = "create"
	WorkflowCompleteWithoutSimulation WorkflowDecision = "complete_without_simulation"
)

// Simulates reports whether the decision runs the stage sequence.
func (d WorkflowDecision) Simulates() bool {
	return d == WorkflowResume || d == WorkflowCreate
}

// WorkflowRunStatus is the lifecycle of one agent run.
type WorkflowRunStatus string

const (
	WorkflowRunning   WorkflowRunStatus = "running"
	WorkflowComplete  WorkflowRunStatus = "complete"
	WorkflowFailed    WorkflowRunStatus = "failed"
	WorkflowCancelled WorkflowRunStatus = "cancelled"
)

// WorkflowStageView is a stage annotated with its state.
type WorkflowStageView struct {
	WorkflowStage
	Index int        `json:"index"`
	State StageState `json:"state"`
}

// WorkflowSnapshot is the externally visible state of a run.
type WorkflowSnapshot struct {
	RunID         string              `json:"runId,omitempty"`
	ApplicationID string              `json:"applicationId"`
	UniversityID  string              `json:"universityId"`
	Decision      WorkflowDecision    `json:"decision"`
	Status        WorkflowRunStatus   `json:"status"`
	CurrentStage  int                 `json:"currentStage"`
	Complete      bool                `json:"complete"`
	Stages        []WorkflowStageView `json:"stages"`
	Application   *Application        `json:"application,omitempty"`
	TransactionID *string             `json:"transactionId,omitempty"`
	AdmitCardURL  *string             `json:"admitCardUrl,omitempty"`
	Error         *string             `json:"error,omitempty"`
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
}

// StartWorkflowRequest begins the agent for a university.
type StartWorkflowRequest struct {
	UniversityID  string `json:"universityId" validate:"required"`
	ApplicationID string `json:"applicationId"`
}

// AdmitCard describes a rendered admit card download.
type AdmitCard struct {
	ApplicationID string    `json:"applicationId"`
	URL           string    `json:"url"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
