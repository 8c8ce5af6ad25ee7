package api

import (
	"epec-pipeline/internal/api/handler"
	"epec-pipeline/pkg/router"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "epec-pipeline/docs"
)

// NewRouter returns the history API with its routes and Swagger UI.
func NewRouter(log *zap.Logger) *router.Router {
	r := router.New(log)
	RegisterRoutes(r)
	return r
}

func RegisterRoutes(r *router.Router) {
	r.GET(handler.RunsPath, handler.ListRuns)
	r.GET(handler.RunFiguresPath, handler.GetRunFigures)
	r.GET(handler.RunErrorsPath, handler.GetRunErrors)
	r.GET(handler.RunPath, handler.GetRun)
	r.GET(handler.FigureFilePath, handler.GetFigure)
	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
