package app

import (
	"net/http"
	"time"

	"tool_lending_admin/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func allowedOrigins(cfg config.Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range append([]string{cfg.WebOrigin}, cfg.RPOrigins...) {
		if o != "" && !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

func useCORS(r *gin.Engine, c config.Config) {
	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(c),
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
