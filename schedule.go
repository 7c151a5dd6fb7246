package addons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"time"
)

// SchedulesField is the document field that may carry a ScheduledTask.
const SchedulesField = "schedules"

var (
	// ErrInvalidScheduledTask is returned when a ScheduledTask or its plain-data form lacks required values.
	ErrInvalidScheduledTask = errors.New("invalid scheduled task")
)

// ScheduledTask describes a deferred or recurring action.
// This is never persisted as-is: NormalizeDocument unwraps it to the form ToData returns,
// and ScheduledTaskFromData rehydrates it on read.
type ScheduledTask struct {
	ID       string
	TaskName string

	// Time is the moment the task runs. For a recurring task this is the next occurrence.
	Time time.Time

	// Repeat is a standard cron pattern, or empty for a one-shot task.
	Repeat string

	// CatchUp tells if a task that was due while the bot was offline should still run on boot.
	CatchUp bool

	Data map[string]interface{}
}

// ScheduledTaskOption defines function signature that NewScheduledTask's functional option must satisfy.
type ScheduledTaskOption func(*ScheduledTask)

// WithRepeat makes the task recurring with the given cron pattern.
func WithRepeat(pattern string) ScheduledTaskOption {
	return func(task *ScheduledTask) {
		task.Repeat = pattern
	}
}

// WithCatchUp sets whether an overdue task runs on boot.
func WithCatchUp(catchUp bool) ScheduledTaskOption {
	return func(task *ScheduledTask) {
		task.CatchUp = catchUp
	}
}

// WithData attaches arbitrary payload to the task.
func WithData(data map[string]interface{}) ScheduledTaskOption {
	return func(task *ScheduledTask) {
		task.Data = data
	}
}

// NewScheduledTask creates a new ScheduledTask with a random id.
// When WithRepeat is given and at is zero, Time is set to the pattern's next occurrence.
func NewScheduledTask(taskName string, at time.Time, options ...ScheduledTaskOption) (*ScheduledTask, error) {
	task := &ScheduledTask{
		ID:       uuid.NewString(),
		TaskName: taskName,
		Time:     at,
		Data:     map[string]interface{}{},
	}
	for _, opt := range options {
		opt(task)
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if task.Time.IsZero() {
		next, err := task.Next(time.Now())
		if err != nil {
			return nil, err
		}
		task.Time = next
	}

	return task, nil
}

// Validate checks if the task can be scheduled.
func (t *ScheduledTask) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("%w: task name is empty", ErrInvalidScheduledTask)
	}

	if t.Repeat == "" {
		if t.Time.IsZero() {
			return fmt.Errorf("%w: either time or repeat pattern must be given", ErrInvalidScheduledTask)
		}
		return nil
	}

	if _, err := cron.ParseStandard(t.Repeat); err != nil {
		return fmt.Errorf("%w: repeat pattern %q: %s", ErrInvalidScheduledTask, t.Repeat, err.Error())
	}
	return nil
}

// Next returns the next time the task runs after now.
// A one-shot task always returns its Time.
func (t *ScheduledTask) Next(now time.Time) (time.Time, error) {
	if t.Repeat == "" {
		return t.Time, nil
	}

	schedule, err := cron.ParseStandard(t.Repeat)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: repeat pattern %q: %s", ErrInvalidScheduledTask, t.Repeat, err.Error())
	}
	return schedule.Next(now), nil
}

// ToData returns the plain-data form of the task that a Provider persists.
func (t *ScheduledTask) ToData() map[string]interface{} {
	data := make(map[string]interface{}, len(t.Data))
	for k, v := range t.Data {
		data[k] = v
	}

	var repeat interface{}
	if t.Repeat != "" {
		repeat = t.Repeat
	}

	return map[string]interface{}{
		"id":        t.ID,
		"task_name": t.TaskName,
		"time":      t.Time.UnixMilli(),
		"catch_up":  t.CatchUp,
		"data":      data,
		"repeat":    repeat,
	}
}

// MarshalJSON encodes the plain-data form returned by ToData.
func (t *ScheduledTask) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToData())
}

// ScheduledTaskFromData rehydrates a ScheduledTask from its plain-data form.
// Numeric fields are accepted in any type a backend may return them as.
func ScheduledTaskFromData(data map[string]interface{}) (*ScheduledTask, error) {
	task := &ScheduledTask{
		Data: map[string]interface{}{},
	}

	task.ID, _ = data["id"].(string)
	task.TaskName, _ = data["task_name"].(string)
	if task.ID == "" || task.TaskName == "" {
		return nil, fmt.Errorf("%w: id and task_name are required: %#v", ErrInvalidScheduledTask, data)
	}

	millis, ok := toInt64(data["time"])
	if !ok {
		return nil, fmt.Errorf("%w: time has unexpected type %T", ErrInvalidScheduledTask, data["time"])
	}
	task.Time = time.UnixMilli(millis)

	task.CatchUp, _ = data["catch_up"].(bool)
	task.Repeat, _ = data["repeat"].(string)

	if payload, ok := data["data"].(map[string]interface{}); ok {
		task.Data = payload
	}

	return task, nil
}

// NormalizeDocument unwraps scheduled tasks embedded in the "schedules" field.
// When that field holds one or more *ScheduledTask and nothing else, the returned document is
// {"schedules": [first.ToData()]}. Any other document is returned as-is.
func NormalizeDocument(doc Document) Document {
	tasks := embeddedTasks(doc[SchedulesField])
	if len(tasks) == 0 {
		return doc
	}

	return Document{
		SchedulesField: []interface{}{tasks[0].ToData()},
	}
}

func embeddedTasks(value interface{}) []*ScheduledTask {
	switch typed := value.(type) {
	case *ScheduledTask:
		if typed == nil {
			return nil
		}
		return []*ScheduledTask{typed}

	case []*ScheduledTask:
		for _, task := range typed {
			if task == nil {
				return nil
			}
		}
		return typed

	case []interface{}:
		tasks := make([]*ScheduledTask, 0, len(typed))
		for _, v := range typed {
			task, ok := v.(*ScheduledTask)
			if !ok || task == nil {
				return nil
			}
			tasks = append(tasks, task)
		}
		return tasks

	default:
		return nil
	}
}

// LoadSchedules reads the document and rehydrates the tasks stored in its "schedules" field.
// A missing document or a document without the field results in an empty slice.
func LoadSchedules(ctx context.Context, provider Provider, table string, id string) ([]*ScheduledTask, error) {
	doc, err := provider.Get(ctx, table, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return []*ScheduledTask{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules from %s/%s: %w", table, id, err)
	}

	var records []map[string]interface{}
	switch typed := doc[SchedulesField].(type) {
	case nil:
		return []*ScheduledTask{}, nil

	case []map[string]interface{}:
		records = typed

	case []interface{}:
		for i, v := range typed {
			record, ok := v.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: schedules[%d] has unexpected type %T", ErrInvalidScheduledTask, i, v)
			}
			records = append(records, record)
		}

	default:
		return nil, fmt.Errorf("%w: schedules has unexpected type %T", ErrInvalidScheduledTask, typed)
	}

	tasks := make([]*ScheduledTask, 0, len(records))
	for _, record := range records {
		task, err := ScheduledTaskFromData(record)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
