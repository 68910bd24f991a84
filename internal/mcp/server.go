package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tasktrackd/internal/core"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the task tracker over the MCP stdio transport.
type MCPServer struct {
	tracker  *core.Tracker
	logger   *slog.Logger
	location *time.Location
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(tracker *core.Tracker, logger *slog.Logger, location *time.Location) *MCPServer {
	return &MCPServer{
		tracker:  tracker,
		logger:   logger,
		location: location,
	}
}

// Run starts the MCP server using stdio transport.
func (s *MCPServer) Run() error {
	mcpServer := server.NewMCPServer(
		"tasktrackd",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.logger.Info("MCP server starting on stdio")

	return server.ServeStdio(mcpServer)
}

func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("task_create",
		mcp.WithDescription("Create a recurring task definition"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name of the task"),
		),
		mcp.WithString("repeat_type",
			mcp.Required(),
			mcp.Description("Repeat policy: none, monthly, monthly_day, specified_days or interval"),
			mcp.Enum("none", "monthly", "monthly_day", "specified_days", "interval"),
		),
		mcp.WithNumber("repeat_info",
			mcp.Description("Repeat detail; meaning depends on repeat_type (day-of-month, WN composite, weekday digits, or day interval)"),
		),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("First occurrence date, YYYY-MM-DD"),
		),
		mcp.WithString("start_time",
			mcp.Description("Time of day the task starts, HH:MM (default 00:00)"),
		),
	), s.handleCreateTask)

	mcpServer.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List all task definitions"),
	), s.handleListTasks)

	mcpServer.AddTool(mcp.NewTool("task_get",
		mcp.WithDescription("Get one task definition"),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task definition id"),
		),
	), s.handleGetTask)

	mcpServer.AddTool(mcp.NewTool("task_update",
		mcp.WithDescription("Update fields of a task definition; omitted fields stay unchanged"),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task definition id"),
		),
		mcp.WithString("name",
			mcp.Description("New display name"),
		),
		mcp.WithString("repeat_type",
			mcp.Description("New repeat policy"),
			mcp.Enum("none", "monthly", "monthly_day", "specified_days", "interval"),
		),
		mcp.WithNumber("repeat_info",
			mcp.Description("New repeat detail; meaning depends on repeat_type"),
		),
		mcp.WithString("start_date",
			mcp.Description("New first occurrence date, YYYY-MM-DD"),
		),
		mcp.WithString("start_time",
			mcp.Description("New time of day, HH:MM"),
		),
	), s.handleUpdateTask)

	mcpServer.AddTool(mcp.NewTool("task_delete",
		mcp.WithDescription("Delete a task definition and its materialized instances"),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task definition id"),
		),
	), s.handleDeleteTask)

	mcpServer.AddTool(mcp.NewTool("task_comment",
		mcp.WithDescription("Set the comment of a task definition"),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task definition id"),
		),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("New comment"),
		),
	), s.handleCommentTask)

	mcpServer.AddTool(mcp.NewTool("day_instances",
		mcp.WithDescription("Materialize and list the task instances of a calendar day"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date to query, YYYY-MM-DD"),
		),
	), s.handleDayInstances)

	mcpServer.AddTool(mcp.NewTool("instance_transition",
		mcp.WithDescription("Move a task instance through its lifecycle"),
		mcp.WithString("instance_id",
			mcp.Required(),
			mcp.Description("Instance identifier as returned by day_instances"),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Transition to apply"),
			mcp.Enum("start", "finish", "skip", "reset"),
		),
	), s.handleInstanceTransition)

	mcpServer.AddTool(mcp.NewTool("instance_comment",
		mcp.WithDescription("Set the comment of a task instance"),
		mcp.WithString("instance_id",
			mcp.Required(),
			mcp.Description("Instance identifier"),
		),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("New comment"),
		),
	), s.handleInstanceComment)

	s.logger.Info("MCP tools registered", "count", 9)
}

func (s *MCPServer) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")
	repeatType := core.RepeatType(mcp.ParseString(request, "repeat_type", string(core.RepeatNone)))
	repeatInfo := int(mcp.ParseFloat64(request, "repeat_info", 0))

	day, err := core.ParseDate(mcp.ParseString(request, "start_date", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid start_date: %v", err)), nil
	}
	hour, minute := 0, 0
	if startTime := mcp.ParseString(request, "start_time", ""); startTime != "" {
		parsed, err := time.Parse("15:04", startTime)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start_time: %v", err)), nil
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}

	task, err := s.tracker.AddTask(ctx, name, repeatType, repeatInfo, day.At(hour, minute, s.location))
	if err != nil {
		if errors.Is(err, core.ErrInvalidRepeat) || errors.Is(err, core.ErrEmptyName) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Error("add task", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to create task: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task created\nID: %d\nName: %s\nFirst occurrence: %s",
		task.ID(), task.Name(), task.ScheduledStart().Format("2006-01-02 15:04"))), nil
}

func (s *MCPServer) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := s.tracker.Tasks()
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks found"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tasks:\n\n", len(tasks))
	for _, t := range tasks {
		data := t.Data()
		fmt.Fprintf(&b, "#%d %s\n", t.ID(), t.Name())
		fmt.Fprintf(&b, "  Repeat: %s (%d)\n", data.RepeatType, data.RepeatInfo)
		if !data.ScheduledStart.IsZero() {
			fmt.Fprintf(&b, "  First occurrence: %s\n", data.ScheduledStart.Format("2006-01-02 15:04"))
		}
		if data.Comment != "" {
			fmt.Fprintf(&b, "  Comment: %s\n", data.Comment)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleGetTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := int64(mcp.ParseFloat64(request, "task_id", 0))
	task := s.tracker.Task(taskID)
	if task == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", taskID)), nil
	}

	data := task.Data()
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s\n", data.ID, data.Name)
	fmt.Fprintf(&b, "Repeat: %s (%d)\n", data.RepeatType, data.RepeatInfo)
	if !data.ScheduledStart.IsZero() {
		fmt.Fprintf(&b, "First occurrence: %s\n", data.ScheduledStart.Format("2006-01-02 15:04"))
	}
	if data.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", data.Comment)
	}
	fmt.Fprintf(&b, "Created: %s\n", data.CreatedAt.Local().Format("2006-01-02 15:04"))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := int64(mcp.ParseFloat64(request, "task_id", 0))
	task := s.tracker.Task(taskID)
	if task == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", taskID)), nil
	}

	data := *task.Data()
	if name := mcp.ParseString(request, "name", ""); name != "" {
		data.Name = name
	}
	if repeatType := mcp.ParseString(request, "repeat_type", ""); repeatType != "" {
		data.RepeatType = core.RepeatType(repeatType)
	}
	if repeatInfo := mcp.ParseFloat64(request, "repeat_info", -1); repeatInfo >= 0 {
		data.RepeatInfo = int(repeatInfo)
	}
	startDate := mcp.ParseString(request, "start_date", "")
	startTime := mcp.ParseString(request, "start_time", "")
	if startDate != "" || startTime != "" {
		local := data.ScheduledStart.In(s.location)
		day := core.DateOf(local)
		hour, minute := local.Hour(), local.Minute()
		if startDate != "" {
			parsed, err := core.ParseDate(startDate)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid start_date: %v", err)), nil
			}
			day = parsed
		}
		if startTime != "" {
			parsed, err := time.Parse("15:04", startTime)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid start_time: %v", err)), nil
			}
			hour, minute = parsed.Hour(), parsed.Minute()
		}
		data.ScheduledStart = day.At(hour, minute, s.location)
	}

	if err := s.tracker.ModifyTask(ctx, &data); err != nil {
		if errors.Is(err, core.ErrInvalidRepeat) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Error("modify task", "task_id", taskID, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to update task: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d updated\nName: %s\nRepeat: %s (%d)",
		taskID, data.Name, data.RepeatType, data.RepeatInfo)), nil
}

func (s *MCPServer) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := int64(mcp.ParseFloat64(request, "task_id", 0))
	if err := s.tracker.DeleteTask(ctx, taskID); err != nil {
		s.logger.Error("delete task", "task_id", taskID, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete task: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d deleted", taskID)), nil
}

func (s *MCPServer) handleCommentTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := int64(mcp.ParseFloat64(request, "task_id", 0))
	task := s.tracker.Task(taskID)
	if task == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", taskID)), nil
	}
	comment := mcp.ParseString(request, "comment", "")
	if err := task.SetComment(ctx, comment); err != nil {
		s.logger.Error("set task comment", "task_id", taskID, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to set comment: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Comment set on task %d", taskID)), nil
}

func (s *MCPServer) handleDayInstances(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := core.ParseDate(mcp.ParseString(request, "date", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date: %v", err)), nil
	}

	instances, err := s.tracker.InstancesOn(ctx, day)
	if err != nil {
		s.logger.Error("day instances", "date", day.String(), "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve instances: %v", err)), nil
	}
	if len(instances) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No tasks occur on %s", day)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d instances on %s:\n\n", len(instances), day)
	for _, inst := range instances {
		fmt.Fprintf(&b, "%s %s\n", inst.ScheduledStart().Format("15:04"), inst.Name())
		fmt.Fprintf(&b, "  ID: %s\n", inst.ID())
		fmt.Fprintf(&b, "  State: %s\n", inst.State())
		if inst.Comment() != "" {
			fmt.Fprintf(&b, "  Comment: %s\n", inst.Comment())
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleInstanceTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "instance_id", "")
	inst, err := s.tracker.Instance(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrInstanceNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("instance %s not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load instance: %v", err)), nil
	}

	action := mcp.ParseString(request, "action", "")
	switch action {
	case "start":
		err = inst.Start(ctx)
	case "finish":
		err = inst.Finish(ctx)
	case "skip":
		err = inst.Skip(ctx)
	case "reset":
		err = inst.Reset(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}
	if err != nil {
		s.logger.Error("instance transition", "instance_id", id, "action", action, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to apply %s: %v", action, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Instance %s is now %s", id, inst.State())), nil
}

func (s *MCPServer) handleInstanceComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "instance_id", "")
	inst, err := s.tracker.Instance(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrInstanceNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("instance %s not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load instance: %v", err)), nil
	}
	if err := inst.SetComment(ctx, mcp.ParseString(request, "comment", "")); err != nil {
		s.logger.Error("set instance comment", "instance_id", id, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to set comment: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Comment set on instance %s", id)), nil
}
