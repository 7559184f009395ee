package router

import "github.com/gin-gonic/gin"

// Module is a feature area (auth, user pages, health) that mounts its own routes.
type Module interface {
	Register(rg *gin.RouterGroup)
}
