package server

import (
	"errors"
	"net/http"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type vaneRequest struct {
	Position string `json:"position"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	e.GET("/config/flow/user", s.FlowFormHandler)
	e.POST("/config/flow/user", s.FlowUserHandler)
	e.POST("/config/flow/import", s.FlowImportHandler)
	e.GET("/config/entries", s.ListEntriesHandler)
	e.DELETE("/config/entries/:id", s.DeleteEntryHandler)

	e.POST("/services/climate/:unique_id/set_vane_horizontal", s.vaneHandler(domain.COMMAND_VANE_HORIZONTAL))
	e.POST("/services/climate/:unique_id/set_vane_vertical", s.vaneHandler(domain.COMMAND_VANE_VERTICAL))

	e.GET("/entities", s.EntitiesHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, HEALTH_CHECK_TIMEOUT).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) FlowFormHandler(c echo.Context) error {
	result, err := s.flow.StepUser(c.Request().Context(), nil)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) FlowUserHandler(c echo.Context) error {
	var input domain.UserInput
	if err := c.Bind(&input); err != nil {
		return err
	}
	result, err := s.flow.StepUser(c.Request().Context(), &input)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) FlowImportHandler(c echo.Context) error {
	var input domain.ImportInput
	if err := c.Bind(&input); err != nil {
		return err
	}
	result, err := s.flow.StepImport(c.Request().Context(), input)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) ListEntriesHandler(c echo.Context) error {
	entries, err := s.store.List()
	if err != nil {
		return s.httpError(err)
	}
	if entries == nil {
		entries = []domain.ConfigEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// DeleteEntryHandler removes the entry from the store and unloads its account.
func (s *Server) DeleteEntryHandler(c echo.Context) error {
	id := c.Param("id")
	found, err := s.store.Delete(id)
	if err != nil {
		return s.httpError(err)
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.UnloadEntryRequest{EntryId: id}, ENTRY_TIMEOUT).Result()
	if err != nil {
		return s.httpError(err)
	}
	unloaded := false
	if response, ok := res.(domain.UnloadEntryResponse); ok {
		unloaded = response.Found
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entry_id": id,
		"unloaded": unloaded,
	})
}

func (s *Server) vaneHandler(command string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body vaneRequest
		if err := c.Bind(&body); err != nil {
			return err
		}
		if body.Position == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "position is required")
		}
		cmd := domain.EntityCommandRequest{
			EntityType: domain.ENTITY_TYPE_CLIMATE,
			EntityId:   domain.ObjectId(c.Param("unique_id")),
			Command:    command,
			Value:      body.Position,
		}
		res, err := s.rootContext.RequestFuture(s.masterActor, cmd, COMMAND_TIMEOUT).Result()
		if err != nil {
			return s.httpError(err)
		}
		response, ok := res.(domain.EntityCommandResponse)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
		}
		if response.HasResponseError() {
			return s.httpError(response.GetResponseError())
		}
		return c.JSON(http.StatusOK, map[string]string{
			"entity_id": response.EntityId,
			"result":    "ok",
		})
	}
}

func (s *Server) EntitiesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetEntitiesRequest{}, ENTRY_TIMEOUT).Result()
	if err != nil {
		return s.httpError(err)
	}
	response, ok := res.(domain.GetEntitiesResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	entities := response.Entities
	if entities == nil {
		entities = []domain.EntitySnapshot{}
	}
	return c.JSON(http.StatusOK, entities)
}

func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownEntity):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotImplemented):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.Is(err, actor.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	s.logger.Error("server: request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}
