package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/openjudge/content-evaluator/internal/api/middleware"
	"github.com/openjudge/content-evaluator/internal/models"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.GET("schemes").
			To(handler.ListSchemes).
			Doc("List loaded evaluation schemes").
			Metadata(restfulspec.KeyOpenAPITags, []string{"schemes"}).
			Param(ws.QueryParameter("include_parts", "Include internal part schemes").DataType("boolean").Required(false)).
			Param(ws.QueryParameter("context_type", "Filter by context (content, platform, both)").DataType("string").Required(false)).
			Param(ws.QueryParameter("kind", "Filter by scheme kind").DataType("string").Required(false)).
			Writes(SchemeListResponse{}).
			Returns(200, "OK", SchemeListResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("evaluate").
			To(handler.Evaluate).
			Doc("Evaluate a text against the requested schemes").
			Metadata(restfulspec.KeyOpenAPITags, []string{"evaluate"}).
			Reads(models.EvaluationRequest{}).
			Writes(models.EvaluationResponse{}).
			Returns(200, "OK", models.EvaluationResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}
