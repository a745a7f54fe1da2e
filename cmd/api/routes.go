package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-ledger-api/api/swagger"
	"github.com/noah-isme/course-ledger-api/internal/handler"
	"github.com/noah-isme/course-ledger-api/internal/middleware"
	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/service"
	"github.com/noah-isme/course-ledger-api/pkg/config"
	"github.com/noah-isme/course-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-ledger-api/pkg/middleware/requestid"
)

type apiServices struct {
	auth        *service.AuthService
	catalog     *service.CatalogService
	enrollments *service.EnrollmentService
	grades      *service.GradeService
	statistics  *service.StatisticsService
	reports     *service.ReportService
	metrics     *service.MetricsService
	ready       handler.ReadinessProbe
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc apiServices) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))

	probes := handler.NewMetricsHandler(svc.metrics, svc.ready)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	if svc.metrics != nil {
		r.GET("/metrics", probes.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	enrollments := handler.NewEnrollmentHandler(svc.enrollments)
	catalog := handler.NewCatalogHandler(svc.catalog)
	grades := handler.NewGradeHandler(svc.grades)
	stats := handler.NewStatisticsHandler(svc.statistics)

	staff := middleware.RequireStaff()
	selfOrStaff := middleware.RequireSelfOrStaff()
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	api := r.Group(cfg.APIPrefix, middleware.JWT(svc.auth))
	{
		api.POST("/enrollments", enrollments.Select)
		api.DELETE("/enrollments", enrollments.Drop)
		api.GET("/enrollments/eligibility", enrollments.Eligibility)

		api.GET("/courses/available", catalog.Available)
		api.GET("/courses/:id/enrollments", staff, enrollments.ListByCourse)

		api.GET("/students/:id/enrollments", selfOrStaff, enrollments.ListByStudent)
		api.POST("/students/:id/enrollments/drop-term", selfOrStaff, enrollments.DropTerm)
		api.GET("/students/:id/grades", selfOrStaff, grades.Transcript)

		api.PUT("/grades", staff, grades.Save)
		api.POST("/grades/batch", staff, grades.Batch)
		api.GET("/grades", grades.Get)
		api.DELETE("/grades", admin, grades.Delete)

		api.GET("/statistics/courses/:id", staff, stats.Course)
		api.GET("/statistics/students/:id/rank", selfOrStaff, stats.StudentRank)
		api.GET("/statistics/terms/:term/ranking", staff, stats.TermRanking)

		if svc.reports != nil {
			exports := handler.NewExportHandler(svc.reports)
			api.POST("/exports", staff, exports.Create)
			api.GET("/exports/:id", staff, exports.Status)
			api.GET("/exports/:id/download", staff, exports.Download)
		}
	}
	return r
}
