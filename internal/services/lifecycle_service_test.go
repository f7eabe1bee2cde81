package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/models"
)

var errHistoryDown = errors.New("history storage unavailable")

// fakeStore is an in-memory stand-in for the task, assignee, history
// and directory services, honoring the same contracts.
type fakeStore struct {
	tasks       map[string]*models.Task
	assignments map[string][]*models.Assignment
	history     []*models.HistoryEntry
	users       map[string]bool
	members     map[string][]string
	seq         int
	failHistory bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:       make(map[string]*models.Task),
		assignments: make(map[string][]*models.Assignment),
		users:       make(map[string]bool),
		members:     make(map[string][]string),
	}
}

func (f *fakeStore) nextID() string {
	f.seq++
	return fmt.Sprintf("id-%d", f.seq)
}

func (f *fakeStore) CreateTask(_ context.Context, task *models.Task) (*models.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, ErrEmptyTaskTitle
	}
	if task.Deadline.IsZero() {
		return nil, ErrMissingDeadline
	}

	now := time.Now()
	task.ID = f.nextID()
	task.Status = models.StatusPending
	task.CompletedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Urgency == "" {
		task.Urgency = models.UrgencyMedium
	}

	stored := *task
	f.tasks[task.ID] = &stored
	return task, nil
}

func (f *fakeStore) GetTaskByID(_ context.Context, taskID string) (*models.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, taskID string, fields UpdateTaskFields) (*models.Task, error) {
	if fields.Empty() && !fields.SetCompletedAt {
		return nil, ErrNoFieldsToUpdate
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}

	if fields.Title != nil {
		task.Title = *fields.Title
	}
	if fields.Description != nil {
		task.Description = fields.Description
	}
	if fields.Urgency != nil {
		task.Urgency = *fields.Urgency
	}
	if fields.Department != nil {
		task.Department = *fields.Department
	}
	if fields.ProjectID != nil {
		task.ProjectID = fields.ProjectID
	}
	if fields.AssigneeID != nil {
		task.AssigneeID = fields.AssigneeID
	}
	if fields.Deadline != nil {
		task.Deadline = *fields.Deadline
	}
	if fields.Status != nil {
		task.Status = *fields.Status
	}
	if fields.SetCompletedAt {
		task.CompletedAt = fields.CompletedAt
	}
	task.UpdatedAt = time.Now()

	copied := *task
	return &copied, nil
}

func (f *fakeStore) SetTaskStatus(_ context.Context, taskID string, status models.Status, completedAt *time.Time) error {
	task, ok := f.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	task.CompletedAt = completedAt
	task.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, taskID string) error {
	if _, ok := f.tasks[taskID]; !ok {
		return ErrTaskNotFound
	}
	delete(f.tasks, taskID)
	delete(f.assignments, taskID)
	return nil
}

func (f *fakeStore) GetTasks(_ context.Context, filter TaskFilter) ([]*models.Task, int, error) {
	tasks := make([]*models.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		if filter.Status != "" && string(task.Status) != filter.Status {
			continue
		}
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Deadline.Before(tasks[j].Deadline) })
	return tasks, len(tasks), nil
}

func (f *fakeStore) GetUrgentTasks(_ context.Context) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0)
	for _, task := range f.tasks {
		if task.Urgency == models.UrgencyUrgent && task.Status != models.StatusCompleted {
			copied := *task
			tasks = append(tasks, &copied)
		}
	}
	return tasks, nil
}

func (f *fakeStore) GetTasksDueToday(_ context.Context, userID string, day time.Time) ([]*models.Task, error) {
	seen := make(map[string]bool)
	tasks := make([]*models.Task, 0)
	for _, task := range f.tasks {
		if !task.Deadline.Equal(day) || task.Status == models.StatusCompleted || seen[task.ID] {
			continue
		}
		if !f.reachable(task, userID) {
			continue
		}
		seen[task.ID] = true
		copied := *task
		tasks = append(tasks, &copied)
	}
	return tasks, nil
}

func (f *fakeStore) reachable(task *models.Task, userID string) bool {
	if task.AssigneeID != nil && *task.AssigneeID == userID {
		return true
	}
	for _, assignment := range f.assignments[task.ID] {
		if assignment.UserID == userID {
			return true
		}
	}
	if task.ProjectID != nil {
		for _, memberID := range f.members[*task.ProjectID] {
			if memberID == userID {
				return true
			}
		}
	}
	return false
}

func (f *fakeStore) Assign(_ context.Context, taskID, userID, assignedBy string) (bool, error) {
	if _, ok := f.tasks[taskID]; !ok {
		return false, ErrTaskNotFound
	}
	for _, assignment := range f.assignments[taskID] {
		if assignment.UserID == userID {
			return false, nil
		}
	}
	f.assignments[taskID] = append(f.assignments[taskID], &models.Assignment{
		ID:         f.nextID(),
		TaskID:     taskID,
		UserID:     userID,
		AssignedAt: time.Now(),
		AssignedBy: assignedBy,
	})
	return true, nil
}

func (f *fakeStore) Unassign(_ context.Context, taskID, userID string) error {
	assignments := f.assignments[taskID]
	for i, assignment := range assignments {
		if assignment.UserID == userID {
			f.assignments[taskID] = append(assignments[:i], assignments[i+1:]...)
			return nil
		}
	}
	return ErrAssignmentNotFound
}

func (f *fakeStore) GetTaskAssignees(_ context.Context, taskID string) ([]*models.Assignee, error) {
	assignees := make([]*models.Assignee, 0)
	for _, assignment := range f.assignments[taskID] {
		assignees = append(assignees, &models.Assignee{
			UserID:     assignment.UserID,
			AssignedAt: assignment.AssignedAt,
			AssignedBy: assignment.AssignedBy,
		})
	}
	return assignees, nil
}

func (f *fakeStore) GetTaskIDsForUser(_ context.Context, userID string) ([]string, error) {
	taskIDs := make([]string, 0)
	for taskID, assignments := range f.assignments {
		for _, assignment := range assignments {
			if assignment.UserID == userID {
				taskIDs = append(taskIDs, taskID)
			}
		}
	}
	return taskIDs, nil
}

func (f *fakeStore) CascadeFromProject(ctx context.Context, taskID, projectID string) ([]string, error) {
	memberIDs := f.members[projectID]
	for _, memberID := range memberIDs {
		if _, err := f.Assign(ctx, taskID, memberID, models.SystemActor); err != nil {
			return nil, err
		}
	}
	return memberIDs, nil
}

func (f *fakeStore) Record(_ context.Context, params RecordHistoryParams) error {
	if f.failHistory {
		return errHistoryDown
	}
	f.history = append(f.history, &models.HistoryEntry{
		ID:           f.nextID(),
		TaskID:       params.TaskID,
		UserID:       params.UserID,
		Action:       params.Action,
		FieldChanged: params.FieldChanged,
		OldValue:     params.OldValue,
		NewValue:     params.NewValue,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (f *fakeStore) GetTaskHistory(_ context.Context, taskID string) ([]*models.HistoryEntry, error) {
	entries := make([]*models.HistoryEntry, 0)
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].TaskID == taskID {
			entries = append(entries, f.history[i])
		}
	}
	return entries, nil
}

func (f *fakeStore) UserExists(_ context.Context, userID string) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeStore) MembersOf(_ context.Context, projectID string) ([]string, error) {
	return f.members[projectID], nil
}

func newTestEngine(t *testing.T, enforceGraph bool) (LifecycleService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	engine := NewLifecycleService(zerolog.Nop(), store, store, store, store, enforceGraph)
	return engine, store
}

func validCreateParams() CreateTaskParams {
	return CreateTaskParams{
		Title:      "Review system architecture documentation",
		Urgency:    "high",
		Department: "Engineering",
		Deadline:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:  "user-admin",
	}
}

func TestCreateTask_Defaults(t *testing.T) {
	engine, store := newTestEngine(t, false)

	params := validCreateParams()
	params.Urgency = ""
	task, assigneeIDs, err := engine.CreateTask(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if task.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}
	if task.CompletedAt != nil {
		t.Error("CompletedAt set on a fresh task")
	}
	if task.Urgency != models.UrgencyMedium {
		t.Errorf("Urgency = %q, want medium default", task.Urgency)
	}
	if len(assigneeIDs) != 0 {
		t.Errorf("assignee ids = %v, want none", assigneeIDs)
	}

	entries, _ := store.GetTaskHistory(context.Background(), task.ID)
	if len(entries) != 1 || entries[0].Action != models.ActionCreated {
		t.Fatalf("history = %+v, want one created entry", entries)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	ctx := context.Background()

	params := validCreateParams()
	params.Title = "   "
	if _, _, err := engine.CreateTask(ctx, params); !errors.Is(err, ErrEmptyTaskTitle) {
		t.Errorf("blank title: err = %v, want ErrEmptyTaskTitle", err)
	}

	params = validCreateParams()
	params.Deadline = time.Time{}
	if _, _, err := engine.CreateTask(ctx, params); !errors.Is(err, ErrMissingDeadline) {
		t.Errorf("zero deadline: err = %v, want ErrMissingDeadline", err)
	}

	params = validCreateParams()
	params.Urgency = "critical"
	if _, _, err := engine.CreateTask(ctx, params); !errors.Is(err, ErrInvalidTaskUrgency) {
		t.Errorf("bad urgency: err = %v, want ErrInvalidTaskUrgency", err)
	}

	params = validCreateParams()
	params.AssigneeIDs = []string{"ghost"}
	if _, _, err := engine.CreateTask(ctx, params); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown assignee: err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateTask_ExplicitAssignees(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()
	store.users["user-a"] = true
	store.users["user-b"] = true
	store.members["proj-1"] = []string{"user-c"}

	params := validCreateParams()
	projectID := "proj-1"
	params.ProjectID = &projectID
	params.AssigneeIDs = []string{"user-a", "user-b"}

	task, assigneeIDs, err := engine.CreateTask(ctx, params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if len(assigneeIDs) != 2 {
		t.Fatalf("assignee ids = %v, want [user-a user-b]", assigneeIDs)
	}

	// The explicit list wins over the project membership.
	assignees, _ := store.GetTaskAssignees(ctx, task.ID)
	if len(assignees) != 2 {
		t.Fatalf("assignees = %d, want 2", len(assignees))
	}
	for _, assignee := range assignees {
		if assignee.AssignedBy != params.CreatedBy {
			t.Errorf("AssignedBy = %q, want creator %q", assignee.AssignedBy, params.CreatedBy)
		}
	}
}

func TestCreateTask_CascadeFromProject(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()
	store.members["proj-1"] = []string{"user-a", "user-b"}

	params := validCreateParams()
	projectID := "proj-1"
	params.ProjectID = &projectID

	task, assigneeIDs, err := engine.CreateTask(ctx, params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if len(assigneeIDs) != 2 || assigneeIDs[0] != "user-a" || assigneeIDs[1] != "user-b" {
		t.Fatalf("assignee ids = %v, want project members", assigneeIDs)
	}

	assignees, _ := store.GetTaskAssignees(ctx, task.ID)
	if len(assignees) != 2 {
		t.Fatalf("assignees = %d, want 2", len(assignees))
	}
	for _, assignee := range assignees {
		if assignee.AssignedBy != models.SystemActor {
			t.Errorf("AssignedBy = %q, want system", assignee.AssignedBy)
		}
	}
}

func TestCreateTask_HistoryFailureKeepsTask(t *testing.T) {
	engine, store := newTestEngine(t, false)
	store.failHistory = true

	_, _, err := engine.CreateTask(context.Background(), validCreateParams())
	if !errors.Is(err, errHistoryDown) {
		t.Fatalf("err = %v, want history failure", err)
	}
	// No rollback: the task row stays in place.
	if len(store.tasks) != 1 {
		t.Errorf("tasks = %d, want the created row to persist", len(store.tasks))
	}
}

func TestAddAssignees_Idempotent(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	added, err := engine.AddAssignees(ctx, task.ID, []string{"user-a"}, "user-admin")
	if err != nil || added != 1 {
		t.Fatalf("first add = (%d, %v), want (1, nil)", added, err)
	}
	added, err = engine.AddAssignees(ctx, task.ID, []string{"user-a"}, "user-admin")
	if err != nil || added != 0 {
		t.Fatalf("second add = (%d, %v), want (0, nil)", added, err)
	}
	if len(store.assignments[task.ID]) != 1 {
		t.Errorf("assignments = %d, want exactly one row", len(store.assignments[task.ID]))
	}

	// Assignee changes stay out of the audit trail.
	entries, _ := store.GetTaskHistory(ctx, task.ID)
	if len(entries) != 1 {
		t.Errorf("history = %d entries, want only the created one", len(entries))
	}
}

func TestAddAssignees_TaskNotFound(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	if _, err := engine.AddAssignees(context.Background(), "missing", []string{"user-a"}, "actor"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestRemoveAssignee(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err = engine.AddAssignees(ctx, task.ID, []string{"user-a"}, "actor"); err != nil {
		t.Fatalf("AddAssignees: %v", err)
	}

	if err = engine.RemoveAssignee(ctx, task.ID, "user-a"); err != nil {
		t.Fatalf("RemoveAssignee: %v", err)
	}
	if err = engine.RemoveAssignee(ctx, task.ID, "user-a"); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("second remove: err = %v, want ErrAssignmentNotFound", err)
	}
}

func TestChangeTaskStatus_CompletionTimestamp(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	assertInvariant := func() {
		t.Helper()
		current, err := engine.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if (current.CompletedAt != nil) != (current.Status == models.StatusCompleted) {
			t.Errorf("CompletedAt set = %v while status = %q",
				current.CompletedAt != nil, current.Status)
		}
	}

	updated, err := engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{
		TaskID: task.ID, ActorID: "actor", Status: "completed",
	})
	if err != nil {
		t.Fatalf("ChangeTaskStatus: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Error("CompletedAt not set on entering completed")
	}
	assertInvariant()

	// Leaving completed clears the timestamp again.
	updated, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{
		TaskID: task.ID, ActorID: "actor", Status: "in-progress",
	})
	if err != nil {
		t.Fatalf("ChangeTaskStatus: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Error("CompletedAt still set after leaving completed")
	}
	assertInvariant()

	entries, _ := store.GetTaskHistory(ctx, task.ID)
	if len(entries) != 3 {
		t.Fatalf("history = %d entries, want 3", len(entries))
	}
	latest := entries[0]
	if latest.Action != models.ActionStatusChanged ||
		latest.OldValue == nil || *latest.OldValue != "completed" ||
		latest.NewValue == nil || *latest.NewValue != "in-progress" {
		t.Errorf("latest entry = %+v, want status_changed completed -> in-progress", latest)
	}
}

func TestChangeTaskStatus_Errors(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	ctx := context.Background()

	if _, err := engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{
		TaskID: "missing", ActorID: "actor", Status: "completed",
	}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task: err = %v, want ErrTaskNotFound", err)
	}

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{
		TaskID: task.ID, ActorID: "actor", Status: "done",
	}); !errors.Is(err, ErrInvalidTaskStatus) {
		t.Errorf("bad status: err = %v, want ErrInvalidTaskStatus", err)
	}
}

func TestChangeTaskStatus_GraphEnforcement(t *testing.T) {
	ctx := context.Background()

	// Permissive by default: writing pending from completed is allowed.
	engine, _ := newTestEngine(t, false)
	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: "completed"}); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if _, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: "pending"}); err != nil {
		t.Errorf("permissive engine rejected completed -> pending: %v", err)
	}

	strict, _ := newTestEngine(t, true)
	task, _, err = strict.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err = strict.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: "completed"}); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if _, err = strict.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: "pending"}); !errors.Is(err, ErrStatusTransition) {
		t.Errorf("strict engine: err = %v, want ErrStatusTransition", err)
	}
}

func TestUpdateTask_GeneralUpdate(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	title := "Update project status report"
	updated, err := engine.UpdateTask(ctx, UpdateTaskParams{
		TaskID: task.ID, ActorID: "actor", Title: &title,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, want %q", updated.Title, title)
	}
	if updated.Urgency != models.UrgencyHigh {
		t.Errorf("Urgency changed by a partial update: %q", updated.Urgency)
	}

	entries, _ := store.GetTaskHistory(ctx, task.ID)
	if len(entries) != 2 || entries[0].Action != models.ActionUpdated {
		t.Fatalf("history = %+v, want created + updated", entries)
	}
	if entries[0].FieldChanged != nil {
		t.Error("general update recorded a field diff")
	}
}

func TestUpdateTask_StatusField(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	status := "completed"
	updated, err := engine.UpdateTask(ctx, UpdateTaskParams{
		TaskID: task.ID, ActorID: "actor", Status: &status,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != models.StatusCompleted || updated.CompletedAt == nil {
		t.Errorf("status update did not apply the completion side effect: %+v", updated)
	}

	entries, _ := store.GetTaskHistory(ctx, task.ID)
	if len(entries) != 2 {
		t.Fatalf("history = %d entries, want exactly one per call", len(entries))
	}
	entry := entries[0]
	if entry.Action != models.ActionStatusChanged ||
		entry.OldValue == nil || *entry.OldValue != "pending" ||
		entry.NewValue == nil || *entry.NewValue != "completed" {
		t.Errorf("entry = %+v, want status_changed pending -> completed", entry)
	}
}

func TestUpdateTask_Errors(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if _, err = engine.UpdateTask(ctx, UpdateTaskParams{TaskID: task.ID, ActorID: "a"}); !errors.Is(err, ErrNoFieldsToUpdate) {
		t.Errorf("empty update: err = %v, want ErrNoFieldsToUpdate", err)
	}

	urgency := "critical"
	if _, err = engine.UpdateTask(ctx, UpdateTaskParams{TaskID: task.ID, ActorID: "a", Urgency: &urgency}); !errors.Is(err, ErrInvalidTaskUrgency) {
		t.Errorf("bad urgency: err = %v, want ErrInvalidTaskUrgency", err)
	}

	title := "anything"
	if _, err = engine.UpdateTask(ctx, UpdateTaskParams{TaskID: "missing", ActorID: "a", Title: &title}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task: err = %v, want ErrTaskNotFound", err)
	}
}

func TestDeleteTask(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()
	store.members["proj-1"] = []string{"user-a", "user-b"}

	params := validCreateParams()
	projectID := "proj-1"
	params.ProjectID = &projectID
	task, _, err := engine.CreateTask(ctx, params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if err = engine.DeleteTask(ctx, task.ID, "user-admin"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	if _, err = engine.GetTask(ctx, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("task still readable after delete: %v", err)
	}
	if len(store.assignments[task.ID]) != 0 {
		t.Error("assignments survived the delete")
	}

	// The trail outlives the task: created + deleted.
	entries, _ := engine.GetTaskHistory(ctx, task.ID)
	if len(entries) != 2 {
		t.Fatalf("history = %d entries, want 2", len(entries))
	}
	if entries[0].Action != models.ActionDeleted {
		t.Errorf("latest action = %q, want deleted", entries[0].Action)
	}
}

func TestDeleteTask_NotFound(t *testing.T) {
	engine, store := newTestEngine(t, false)

	err := engine.DeleteTask(context.Background(), "missing", "actor")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	// A missing task must not leave a stray deleted entry behind.
	if len(store.history) != 0 {
		t.Errorf("history = %d entries, want none", len(store.history))
	}
}

func TestHistoryTimestampsMonotonic(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	ctx := context.Background()

	task, _, err := engine.CreateTask(ctx, validCreateParams())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	for _, status := range []string{"in-progress", "completed", "cancelled"} {
		if _, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: status}); err != nil {
			t.Fatalf("ChangeTaskStatus(%s): %v", status, err)
		}
	}

	entries, err := engine.GetTaskHistory(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskHistory: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("history = %d entries, want 4", len(entries))
	}
	// Newest first, so timestamps never increase down the list.
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Errorf("entry %d is newer than entry %d", i, i-1)
		}
	}
}

func TestGetTasksDueToday(t *testing.T) {
	engine, store := newTestEngine(t, false)
	ctx := context.Background()
	store.members["proj-1"] = []string{"user-a"}

	params := validCreateParams()
	params.Deadline = today()
	projectID := "proj-1"
	params.ProjectID = &projectID
	task, _, err := engine.CreateTask(ctx, params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// user-a qualifies through both the registry (cascaded) and the
	// project membership; the task must still show up once.
	tasks, err := engine.GetTasksDueToday(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetTasksDueToday: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("tasks = %+v, want exactly the created task", tasks)
	}

	if _, err = engine.ChangeTaskStatus(ctx, ChangeTaskStatusParams{TaskID: task.ID, ActorID: "a", Status: "completed"}); err != nil {
		t.Fatalf("ChangeTaskStatus: %v", err)
	}
	tasks, err = engine.GetTasksDueToday(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetTasksDueToday: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("completed task still listed as due today")
	}
}
