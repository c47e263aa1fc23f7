package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/app"
	"github.com/eleven-am/taskboard/internal/board"
	"github.com/eleven-am/taskboard/internal/domain"
)

var (
	projectLead  string
	projectLanes []string
	memberRole   string

	statusColor     string
	statusDefault   bool
	statusCompleted bool

	taskDescription string
	taskPriority    string
	taskDue         string
	taskParent      string
	taskAssignees   []string
	taskLabels      []string
	taskPosition    int
	taskVersion     int

	depType string

	boardJSON bool
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace owned by the actor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			actor := currentActor()
			actor.WorkspaceRole = domain.WorkspaceOwner
			ws, err := a.Board.CreateWorkspace(ctx, actor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ws.ID)
			return nil
		})
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects and their members",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <workspace-id> <name>",
	Short: "Create a project with its lanes",
	Long: `Create a project. Lanes are given as --lane name[:default][:completed]
in board order; without --lane the project gets To Do, In Progress and Done.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lanes, err := parseLanes(projectLanes)
		if err != nil {
			return err
		}
		def := board.ProjectSpec{WorkspaceID: args[0], Name: args[1], Lanes: lanes}
		if projectLead != "" {
			def.LeadID = &projectLead
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			p, statuses, err := a.Board.CreateProject(ctx, currentActor(), def)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p.ID)
			printLanes(out, statuses)
			return nil
		})
	},
}

var projectMemberCmd = &cobra.Command{
	Use:   "member <project-id> <member-id>",
	Short: "Add a member to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Board.AddProjectMember(ctx, currentActor(), args[0], args[1], domain.ProjectRole(memberRole))
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Manage the lanes of a project",
}

var statusCreateCmd = &cobra.Command{
	Use:   "create <project-id> <name>",
	Short: "Append a lane to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			st, err := a.Board.CreateStatus(ctx, currentActor(), domain.CreateStatusCommand{
				ProjectID:   args[0],
				Name:        args[1],
				Color:       statusColor,
				IsDefault:   statusDefault,
				IsCompleted: statusCompleted,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.ID)
			return nil
		})
	},
}

var statusListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the lanes of a project in board order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			lanes, err := a.Board.Lanes(ctx, args[0])
			if err != nil {
				return err
			}
			printLanes(cmd.OutOrStdout(), lanes)
			return nil
		})
	},
}

var statusReorderCmd = &cobra.Command{
	Use:   "reorder <project-id> <status-id>...",
	Short: "Rewrite the lane order of a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			lanes, err := a.Board.ReorderStatuses(ctx, currentActor(), domain.ReorderStatusesCommand{ProjectID: args[0], StatusIDs: args[1:]})
			if err != nil {
				return err
			}
			printLanes(cmd.OutOrStdout(), lanes)
			return nil
		})
	},
}

var statusDeleteCmd = &cobra.Command{
	Use:   "delete <status-id>",
	Short: "Delete a lane, moving its tasks to the default lane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Board.DeleteStatus(ctx, currentActor(), domain.DeleteStatusCommand{StatusID: args[0]})
		})
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, move and manage tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <project-id> <title>",
	Short: "Create a task in the project's default lane",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := domain.CreateTaskCommand{
			ProjectID:   args[0],
			Title:       args[1],
			Priority:    domain.Priority(taskPriority),
			AssigneeIDs: taskAssignees,
			LabelIDs:    taskLabels,
		}
		if taskDescription != "" {
			c.Description = &taskDescription
		}
		if taskParent != "" {
			c.ParentTaskID = &taskParent
		}
		if taskDue != "" {
			due, err := parseDue(taskDue)
			if err != nil {
				return err
			}
			c.DueDate = &due
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			task, err := a.Board.CreateTask(ctx, currentActor(), c)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		})
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <task-id> <status-id>",
	Short: "Move a task to a lane and position (default: the tail)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := domain.MoveTaskCommand{TaskID: args[0], StatusID: args[1]}
		if cmd.Flags().Changed("position") {
			c.Position = &taskPosition
		}
		if cmd.Flags().Changed("expected-version") {
			c.ExpectedVersion = &taskVersion
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			task, err := a.Board.MoveTask(ctx, currentActor(), c)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		})
	},
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <member-id>...",
	Short: "Assign members to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Board.Assign(ctx, currentActor(), domain.AssignTaskCommand{TaskID: args[0], MemberIDs: args[1:]})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTask(out, res.Task)
			if res.AutoProgressed {
				fmt.Fprintln(out, "auto-progressed")
			}
			return nil
		})
	},
}

var taskUnassignCmd = &cobra.Command{
	Use:   "unassign <task-id> <member-id>",
	Short: "Remove a member from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Board.Unassign(ctx, currentActor(), domain.UnassignTaskCommand{TaskID: args[0], MemberID: args[1]})
		})
	},
}

var taskArchiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Archive a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			_, err := a.Board.ArchiveTask(ctx, currentActor(), domain.ArchiveTaskCommand{TaskID: args[0]})
			return err
		})
	},
}

var taskRestoreCmd = &cobra.Command{
	Use:   "restore <task-id>",
	Short: "Restore an archived task to the tail of its lane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			task, err := a.Board.RestoreTask(ctx, currentActor(), domain.RestoreTaskCommand{TaskID: args[0]})
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		})
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Board.DeleteTask(ctx, currentActor(), domain.DeleteTaskCommand{TaskID: args[0]})
		})
	},
}

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage task dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task-id> <depends-on-task-id>",
	Short: "Record that a task depends on another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			_, err := a.Board.AddDependency(ctx, currentActor(), domain.AddDependencyCommand{
				TaskID:          args[0],
				DependsOnTaskID: args[1],
				Type:            domain.DependencyType(depType),
			})
			return err
		})
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <task-id> <depends-on-task-id>",
	Short: "Remove a dependency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.Board.RemoveDependency(ctx, currentActor(), domain.RemoveDependencyCommand{
				TaskID:          args[0],
				DependsOnTaskID: args[1],
				Type:            domain.DependencyType(depType),
			})
		})
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Inspect project boards",
}

var boardShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Print the lanes of a project with their tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			b, err := a.Board.Board(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if boardJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			fmt.Fprintf(out, "%s\n", b.Project.Name)
			for _, lane := range b.Lanes {
				fmt.Fprintf(out, "\n%s (%d)\n", lane.Status.Name, len(lane.Tasks))
				for _, task := range lane.Tasks {
					fmt.Fprintf(out, "  %d. %s [%s] %s\n", task.Position, task.Title, task.Priority, task.ID)
				}
			}
			return nil
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <tool> <json-args>",
	Short: "Run a tool call such as move_task with JSON arguments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := domain.DecodeToolCall(args[0], []byte(args[1]))
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Board.Execute(ctx, currentActor(), command)
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		})
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceCreateCmd)

	projectCreateCmd.Flags().StringVar(&projectLead, "lead", "", "Member id of the project lead")
	projectCreateCmd.Flags().StringArrayVar(&projectLanes, "lane", nil, "Lane as name[:default][:completed], repeatable")
	projectMemberCmd.Flags().StringVar(&memberRole, "member-role", string(domain.ProjectMember), "Role in the project (lead, member, viewer)")
	projectCmd.AddCommand(projectCreateCmd, projectMemberCmd)

	statusCreateCmd.Flags().StringVar(&statusColor, "color", "", "Lane colour")
	statusCreateCmd.Flags().BoolVar(&statusDefault, "default", false, "Make the lane the project's default")
	statusCreateCmd.Flags().BoolVar(&statusCompleted, "completed", false, "Tasks in the lane count as completed")
	statusCmd.AddCommand(statusCreateCmd, statusListCmd, statusReorderCmd, statusDeleteCmd)

	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority (low, medium, high, urgent)")
	taskCreateCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	taskCreateCmd.Flags().StringVar(&taskParent, "parent", "", "Parent task id")
	taskCreateCmd.Flags().StringSliceVar(&taskAssignees, "assignee", nil, "Member ids to assign")
	taskCreateCmd.Flags().StringSliceVar(&taskLabels, "label", nil, "Label ids to attach")
	taskMoveCmd.Flags().IntVar(&taskPosition, "position", 0, "Target position (default: the tail)")
	taskMoveCmd.Flags().IntVar(&taskVersion, "expected-version", 0, "Fail unless the task is at this version")
	taskCmd.AddCommand(taskCreateCmd, taskMoveCmd, taskAssignCmd, taskUnassignCmd, taskArchiveCmd, taskRestoreCmd, taskDeleteCmd)

	depAddCmd.Flags().StringVar(&depType, "type", string(domain.DependencyBlocks), "Dependency type (blocks, blocked_by)")
	depRemoveCmd.Flags().StringVar(&depType, "type", string(domain.DependencyBlocks), "Dependency type (blocks, blocked_by)")
	depCmd.AddCommand(depAddCmd, depRemoveCmd)

	boardShowCmd.Flags().BoolVar(&boardJSON, "json", false, "Print the board as JSON")
	boardCmd.AddCommand(boardShowCmd)
}

// parseLanes reads --lane values of the form name[:default][:completed].
func parseLanes(values []string) ([]board.LaneSpec, error) {
	var lanes []board.LaneSpec
	for _, v := range values {
		parts := strings.Split(v, ":")
		lane := board.LaneSpec{Name: strings.TrimSpace(parts[0])}
		for _, flag := range parts[1:] {
			switch strings.TrimSpace(flag) {
			case "default":
				lane.IsDefault = true
			case "completed":
				lane.IsCompleted = true
			default:
				return nil, fmt.Errorf("lane %q: unknown flag %q", v, flag)
			}
		}
		lanes = append(lanes, lane)
	}
	return lanes, nil
}

func parseDue(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}

func printLanes(w io.Writer, lanes []domain.Status) {
	for _, l := range lanes {
		var flags []string
		if l.IsDefault {
			flags = append(flags, "default")
		}
		if l.IsCompleted {
			flags = append(flags, "completed")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.Position, l.ID, l.Name, strings.Join(flags, ","))
	}
}

func printTask(w io.Writer, t *domain.Task) {
	fmt.Fprintf(w, "%s\tstatus=%s\tposition=%d\tversion=%d\n", t.ID, t.StatusID, t.Position, t.Version)
}
