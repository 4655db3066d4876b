package handlers

import (
	"net/http"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"
	"task-assigner/internal/tasks"
	"task-assigner/internal/users"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	Engine *tasks.Engine
	Users  *users.Store
}

type createTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tag         models.TaskTag `json:"tag"`
}

func (tc *TaskController) Create(c *gin.Context) {
	actor, found := identity(c)
	if !found {
		return
	}
	var req createTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := tc.Engine.Create(c.Request.Context(), actor, tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Tag:         req.Tag,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Task created", gin.H{"task": task})
}

type updateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Tag         *models.TaskTag    `json:"tag"`
	Status      *models.TaskStatus `json:"status"`
}

func (tc *TaskController) Update(c *gin.Context) {
	actor, found := identity(c)
	if !found {
		return
	}
	id, valid := parseID(c, "task")
	if !valid {
		return
	}
	var req updateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Status != nil {
		respondError(c, apperr.Validation("status cannot be updated directly"))
		return
	}

	task, err := tc.Engine.Update(c.Request.Context(), actor, id, tasks.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Tag:         req.Tag,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Task updated", gin.H{"task": task})
}

func (tc *TaskController) Delete(c *gin.Context) {
	actor, found := identity(c)
	if !found {
		return
	}
	id, valid := parseID(c, "task")
	if !valid {
		return
	}
	if err := tc.Engine.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Task deleted", nil)
}

type assignTaskRequest struct {
	ManagerID uint `json:"managerId"`
}

func (tc *TaskController) Assign(c *gin.Context) {
	actor, found := identity(c)
	if !found {
		return
	}
	id, valid := parseID(c, "task")
	if !valid {
		return
	}
	var req assignTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := tc.Engine.Assign(c.Request.Context(), actor, id, req.ManagerID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Task assigned", gin.H{"task": task})
}

type lifecycleFunc func(*TaskController, *gin.Context, uint) (*models.Task, error)

// transition builds the handler for the assignee-only actions.
func (tc *TaskController) transition(msg string, fn lifecycleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := parseID(c, "task")
		if !valid {
			return
		}
		task, err := fn(tc, c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		ok(c, http.StatusOK, msg, gin.H{"task": task})
	}
}

func (tc *TaskController) Accept() gin.HandlerFunc {
	return tc.transition("Task accepted", func(tc *TaskController, c *gin.Context, id uint) (*models.Task, error) {
		actor, _ := identity(c)
		return tc.Engine.Accept(c.Request.Context(), actor, id)
	})
}

func (tc *TaskController) Decline() gin.HandlerFunc {
	return tc.transition("Task declined", func(tc *TaskController, c *gin.Context, id uint) (*models.Task, error) {
		actor, _ := identity(c)
		return tc.Engine.Decline(c.Request.Context(), actor, id)
	})
}

func (tc *TaskController) Complete() gin.HandlerFunc {
	return tc.transition("Task completed", func(tc *TaskController, c *gin.Context, id uint) (*models.Task, error) {
		actor, _ := identity(c)
		return tc.Engine.Complete(c.Request.Context(), actor, id)
	})
}

func (tc *TaskController) Logs(c *gin.Context) {
	actor, found := identity(c)
	if !found {
		return
	}
	id, valid := parseID(c, "task")
	if !valid {
		return
	}
	logs, err := tc.Engine.Logs(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Task logs", gin.H{"logs": logs})
}

func (tc *TaskController) AllManagers(c *gin.Context) {
	managers, err := tc.Users.ListManagers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, "Managers", gin.H{"managers": managers})
}

// list serves the role-scoped task lists; scope fills in the filter from the
// caller's identity.
func (tc *TaskController) list(scope func(uint) tasks.Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, found := identity(c)
		if !found {
			return
		}
		f := scope(actor.UserID)
		f.Status = models.TaskStatus(c.Query("status"))

		list, err := tc.Engine.Tasks().List(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		ok(c, http.StatusOK, "Tasks", gin.H{"tasks": list})
	}
}

func (tc *TaskController) ManagerTasks() gin.HandlerFunc {
	return tc.list(func(uid uint) tasks.Filter { return tasks.Filter{AssignedToID: uid} })
}

func (tc *TaskController) EmployeeTasks() gin.HandlerFunc {
	return tc.list(func(uid uint) tasks.Filter { return tasks.Filter{CreatedByID: uid} })
}

func (tc *TaskController) AdminTasks() gin.HandlerFunc {
	return tc.list(func(uint) tasks.Filter { return tasks.Filter{} })
}
