// Package knowledge defines the canonical knowledge record types, their
// merge semantics, and the JSON-backed record store.
//
// Records form a closed sum: Decision, Pattern, Task, Insight. Every
// consumer switches exhaustively on Type; deserialized records are validated
// rather than trusted.
package knowledge

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for record operations.
var (
	ErrEmptyID        = errors.New("record ID cannot be empty")
	ErrEmptySession   = errors.New("record session ID cannot be empty")
	ErrEmptyTopic     = errors.New("decision topic cannot be empty")
	ErrEmptyDecision  = errors.New("decision text cannot be empty")
	ErrEmptyName      = errors.New("pattern name cannot be empty")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyTitle     = errors.New("task title cannot be empty")
	ErrInvalidStatus  = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrUnknownType    = errors.New("unknown knowledge type")
	ErrRecordNotFound = errors.New("record not found")
)

// Type identifies a knowledge record variant.
type Type string

const (
	TypeDecision Type = "decision"
	TypePattern  Type = "pattern"
	TypeTask     Type = "task"
	TypeInsight  Type = "insight"
)

// Types lists all knowledge types in canonical order.
func Types() []Type {
	return []Type{TypeDecision, TypePattern, TypeTask, TypeInsight}
}

// ParseType parses a type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDecision, TypePattern, TypeTask, TypeInsight:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Record is the capability shared by all four variants. Accept Record,
// switch on Kind for variant-specific handling.
type Record interface {
	// Kind returns the variant tag.
	Kind() Type

	// RecordID returns the stable opaque id.
	RecordID() string

	// Session returns the originating session id.
	Session() string

	// MergeKey is the field used to detect "same logical record" across
	// repeated captures of one session.
	MergeKey() string

	// EmbeddingText is the type-specific concatenation that gets
	// embedded; distinct from display text.
	EmbeddingText() string

	// Validate checks structural invariants.
	Validate() error
}

// Decision records a choice made in a session.
type Decision struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale,omitempty"`
	SessionID  string    `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`

	// Supersedes links to a prior decision's id. Superseded decisions
	// are never deleted, only referenced.
	Supersedes string `json:"supersedes,omitempty"`
}

func (d *Decision) Kind() Type       { return TypeDecision }
func (d *Decision) RecordID() string { return d.ID }
func (d *Decision) Session() string  { return d.SessionID }
func (d *Decision) MergeKey() string { return d.Topic }

func (d *Decision) EmbeddingText() string {
	text := fmt.Sprintf("%s: %s", d.Topic, d.Decision)
	if d.Rationale != "" {
		text += ". Rationale: " + d.Rationale
	}
	return text
}

func (d *Decision) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if d.Topic == "" {
		return ErrEmptyTopic
	}
	if d.Decision == "" {
		return ErrEmptyDecision
	}
	if d.SessionID == "" {
		return ErrEmptySession
	}
	return nil
}

// Pattern records a recurring convention or approach.
type Pattern struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Usage       string    `json:"usage,omitempty"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (p *Pattern) Kind() Type       { return TypePattern }
func (p *Pattern) RecordID() string { return p.ID }
func (p *Pattern) Session() string  { return p.SessionID }
func (p *Pattern) MergeKey() string { return p.Name }

func (p *Pattern) EmbeddingText() string {
	text := fmt.Sprintf("%s: %s", p.Name, p.Description)
	if p.Usage != "" {
		text += ". Usage: " + p.Usage
	}
	return text
}

func (p *Pattern) Validate() error {
	if p.ID == "" {
		return ErrEmptyID
	}
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Description == "" {
		return ErrEmptyContent
	}
	if p.SessionID == "" {
		return ErrEmptySession
	}
	return nil
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// TaskPriority ranks a task.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Task records outstanding or finished work.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority,omitempty"`

	SessionCreated   string `json:"session_created"`
	SessionCompleted string `json:"session_completed,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (t *Task) Kind() Type       { return TypeTask }
func (t *Task) RecordID() string { return t.ID }
func (t *Task) Session() string  { return t.SessionCreated }
func (t *Task) MergeKey() string { return Normalize(t.Title) }

func (t *Task) EmbeddingText() string {
	if t.Description != "" {
		return t.Title + ". " + t.Description
	}
	return t.Title
}

func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if t.SessionCreated == "" {
		return ErrEmptySession
	}
	switch t.Status {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	switch t.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

// Complete transitions the task to completed in the given session.
func (t *Task) Complete(sessionID string, now time.Time) {
	t.Status = TaskCompleted
	t.SessionCompleted = sessionID
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Cancel transitions the task to cancelled.
func (t *Task) Cancel(now time.Time) {
	t.Status = TaskCancelled
	t.UpdatedAt = now
}

// Insight records a noteworthy observation.
type Insight struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Context   string    `json:"context,omitempty"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (i *Insight) Kind() Type       { return TypeInsight }
func (i *Insight) RecordID() string { return i.ID }
func (i *Insight) Session() string  { return i.SessionID }
func (i *Insight) MergeKey() string { return Normalize(i.Content) }

func (i *Insight) EmbeddingText() string {
	if i.Context != "" {
		return i.Content + ". Context: " + i.Context
	}
	return i.Content
}

func (i *Insight) Validate() error {
	if i.ID == "" {
		return ErrEmptyID
	}
	if i.Content == "" {
		return ErrEmptyContent
	}
	if i.SessionID == "" {
		return ErrEmptySession
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Record = (*Decision)(nil)
	_ Record = (*Pattern)(nil)
	_ Record = (*Task)(nil)
	_ Record = (*Insight)(nil)
)
