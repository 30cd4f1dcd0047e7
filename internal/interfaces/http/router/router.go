package router

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteRegistrar is implemented by handlers that register their own routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router wires handlers onto the gin engine under /api/v1
type Router struct {
	engine *gin.Engine
	api    *gin.RouterGroup
}

// New creates a router on the given engine
func New(engine *gin.Engine) *Router {
	return &Router{
		engine: engine,
		api:    engine.Group("/api/v1"),
	}
}

// Register mounts one or more registrars under /api/v1
func (r *Router) Register(registrars ...RouteRegistrar) {
	for _, registrar := range registrars {
		registrar.RegisterRoutes(r.api)
	}
}

// RegisterRoot mounts registrars at the engine root, outside /api/v1.
// Probe endpoints live here so infrastructure does not depend on the API
// prefix.
func (r *Router) RegisterRoot(registrars ...RouteRegistrar) {
	root := r.engine.Group("")
	for _, registrar := range registrars {
		registrar.RegisterRoutes(root)
	}
}

// RequestID assigns a request ID when the caller did not send one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		c.Set("request_id", id) // consumed by the access log middleware
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
