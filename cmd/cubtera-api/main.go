// Command cubtera-api exposes pkg/invapi's inventory queries over HTTP.
// It is a thin shell: every handler parses its path/query parameters,
// calls into the Service and writes the envelope back verbatim as JSON
// (SPEC_FULL.md §B.5) — no query logic lives here.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/cubtera/cubtera/internal/bootstrap"
	"github.com/cubtera/cubtera/pkg/invapi"
	"github.com/cubtera/cubtera/pkg/logging/ginlog"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, os.Getenv("CUBTERA_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("cubtera-api: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer app.Close(ctx)

	svc := invapi.New(app.Cfg, app.NewDataSource, app.DlogDB)

	router := newRouter(svc, app)

	addr := os.Getenv("CUBTERA_API_LISTEN")
	if addr == "" {
		addr = ":8080"
	}
	app.Logger.Infof("cubtera-api listening on %s", addr)
	if err := router.Run(addr); err != nil {
		app.Logger.Fatalf("server stopped: %v", err)
	}
}

func newRouter(svc *invapi.Service, app *bootstrap.App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), ginlog.RequestLogger(app.ZapLogger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1/:org")
	{
		v1.GET("/dimTypes", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimTypes(ctx, org)
		}))
		v1.GET("/dims", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimsByType(ctx, org, c.Query("type"))
		}))
		v1.GET("/dimsData", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimsDataByType(ctx, org, c.Query("type"))
		}))
		v1.GET("/dim", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimByName(ctx, org, c.Query("type"), c.Query("name"), c.Query("context"))
		}))
		v1.GET("/dimDefaults", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimsDefaultsByType(ctx, org, c.Query("type"))
		}))
		v1.GET("/dimParent", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimParent(ctx, org, c.Query("type"), c.Query("name"))
		}))
		v1.GET("/dimsByParent", handle(func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error) {
			return svc.DimsByParent(ctx, org, c.Query("type"), c.Query("name"))
		}))
	}

	router.GET("/v1/orgs", func(c *gin.Context) {
		envelope, err := svc.Orgs(c.Request.Context())
		writeEnvelope(c, envelope, err)
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "not found"})
	})

	return router
}

func handle(fn func(ctx context.Context, c *gin.Context, org string) (map[string]interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		envelope, err := fn(c.Request.Context(), c, c.Param("org"))
		writeEnvelope(c, envelope, err)
	}
}

func writeEnvelope(c *gin.Context, envelope map[string]interface{}, err error) {
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, envelope)
}
