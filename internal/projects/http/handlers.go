package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tacticboard/projects-api/internal/api/http/middleware"
	"github.com/tacticboard/projects-api/internal/auth"
	"github.com/tacticboard/projects-api/internal/projects/domain"
	"github.com/tacticboard/projects-api/internal/projects/validation"
)

func (h *Handler) test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "Project Works"})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) get(c *gin.Context) {
	id, err := domain.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) activity(c *gin.Context) {
	id, err := domain.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.svc.Activity(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"body": "invalid body"})
		return
	}

	errs, ok := validation.ValidateProjectInput(req)
	if !ok {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	creator, err := primitive.ObjectIDFromHex(auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), creator, req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			c.JSON(http.StatusBadRequest, gin.H{"name": "Project already exists"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := domain.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) edit(c *gin.Context) {
	var req domain.EditProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "invalid body"})
		return
	}

	p, err := h.svc.Edit(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) setComment(c *gin.Context) {
	var req domain.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID.IsZero() || (!req.Delete && req.Comment == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "invalid body"})
		return
	}

	// Without a signed-in user the comment must name its own author.
	actor, _ := primitive.ObjectIDFromHex(auth.UserID(c))
	comments, err := h.svc.SetComment(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *Handler) setFinishedTactic(c *gin.Context) {
	var req domain.FinishedTacticRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID.IsZero() || req.FinishedTactic.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "invalid body"})
		return
	}

	p, err := h.svc.ToggleFinishedTactic(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) addAssignedProject(c *gin.Context) {
	h.bulkMembership(c, true)
}

func (h *Handler) deleteAssignedProject(c *gin.Context) {
	h.bulkMembership(c, false)
}

func (h *Handler) bulkMembership(c *gin.Context, add bool) {
	var req domain.AssignedProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "invalid body"})
		return
	}

	apply := h.svc.DeleteAssignedProject
	if add {
		apply = h.svc.AddAssignedProject
	}
	res, err := apply(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		failed := make([]string, 0, len(res.Failed()))
		for _, r := range res.Failed() {
			failed = append(failed, r.Op.UserID.Hex())
		}
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		log.Printf("[projects] bulk membership on %s failed for %v: %v", req.ProjectID.Hex(), failed, err)
		c.JSON(status, gin.H{"error": http.StatusText(status), "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": len(res.Succeeded())})
}

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrNoAuthor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": err.Error()})
	case errors.Is(err, domain.ErrDuplicateName):
		c.JSON(http.StatusBadRequest, gin.H{"name": "Project already exists"})
	default:
		log.Printf("[projects] id=%s %s %s: %v", middleware.GetRequestID(c.Request.Context()), c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "message": err.Error()})
	}
}
