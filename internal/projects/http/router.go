package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
// requireAuth guards the creation and deletion endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/test", h.test)
	rg.GET("", h.list)
	rg.POST("/createproject", requireAuth, h.create)
	rg.DELETE("/:id", requireAuth, h.delete)

	project := rg.Group("/project")
	project.GET("/:id", h.get)
	project.GET("/:id/activity", h.activity)
	project.POST("/edit", h.edit)
	project.POST("/setComment", h.setComment)
	project.POST("/setFinishedTactic", h.setFinishedTactic)
	project.POST("/deleteAssignedProject", h.deleteAssignedProject)
	project.POST("/addAssignedProject", h.addAssignedProject)
}
