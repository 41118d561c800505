package rest

import (
	"context"
	"errors"
	"strconv"

	"github.com/Builder-Lawyers/store-builder/internal/application"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/gofiber/fiber/v2"
)

type Server struct {
	commands *application.Collection
}

func NewServer(commands *application.Collection) *Server {
	return &Server{commands: commands}
}

// RegisterHandlers mounts the admin API under /api. Middlewares run before every /api route.
func RegisterHandlers(router fiber.Router, s *Server, middlewares ...fiber.Handler) {
	router.Get("/healthz", s.Health)

	api := router.Group("/api")
	for _, m := range middlewares {
		api.Use(m)
	}
	api.Post("/stores", s.CreateStore)
	api.Get("/stores/:id", s.GetStore)
	api.Get("/stores/:id/pages", s.ListPages)
	api.Post("/stores/:id/redeploy", s.RedeployStore)
	api.Delete("/stores/:id", s.DeleteStore)
	api.Get("/domains/check", s.CheckDomain)
	api.Get("/deployments/:id/events", s.StreamDeployment)
}

func (s Server) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// CreateStore answers 201 whenever the record was persisted, including a failed deployment.
func (s Server) CreateStore(c *fiber.Ctx) error {
	var req dto.CreateStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	deploymentID := req.DeploymentID
	result, err := s.commands.CreateStore.Handle(detached(c), req, s.commands.Progress.Reporter(deploymentID))
	if err != nil {
		s.commands.Progress.Fail(deploymentID, err)
		return writeError(c, err)
	}

	resp := dto.CreateStoreResponse{
		Store:   dto.NewStoreResponse(result.Store),
		Publish: result.Publish,
	}
	if result.Failed() {
		resp.PipelineError = result.PipelineErr.Error()
		s.commands.Progress.Fail(deploymentID, result.PipelineErr)
	} else {
		s.commands.Progress.Complete(deploymentID, result.Publish.URL)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s Server) GetStore(c *fiber.Ctx) error {
	id, err := storeID(c)
	if err != nil {
		return writeError(c, err)
	}
	store, err := s.commands.GetStore.Query(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(store)
}

func (s Server) ListPages(c *fiber.Ctx) error {
	id, err := storeID(c)
	if err != nil {
		return writeError(c, err)
	}
	pages, err := s.commands.ListPages.Query(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(pages)
}

func (s Server) RedeployStore(c *fiber.Ctx) error {
	id, err := storeID(c)
	if err != nil {
		return writeError(c, err)
	}
	deploymentID := c.Query("deploymentId")
	force := c.QueryBool("force", false)

	result, err := s.commands.RedeployStore.Handle(detached(c), id, force, s.commands.Progress.Reporter(deploymentID))
	if err != nil {
		s.commands.Progress.Fail(deploymentID, err)
		return writeError(c, err)
	}

	resp := dto.RedeployResponse{
		Store:           dto.NewStoreResponse(result.Store),
		AlreadyDeployed: result.AlreadyDeployed,
		Publish:         result.Publish,
	}
	message := "already deployed"
	if result.Publish != nil {
		message = result.Publish.URL
	}
	s.commands.Progress.Complete(deploymentID, message)
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s Server) DeleteStore(c *fiber.Ctx) error {
	id, err := storeID(c)
	if err != nil {
		return writeError(c, err)
	}
	result, err := s.commands.DeleteStore.Handle(detached(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (s Server) CheckDomain(c *fiber.Ctx) error {
	availability, err := s.commands.CheckDomain.Query(c.UserContext(), c.Query("domain"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(availability)
}

// detached keeps workflows running when the client goes away.
func detached(c *fiber.Ctx) context.Context {
	return context.WithoutCancel(c.UserContext())
}

func storeID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.ValidationError{Invalid: map[string]string{"id": "must be a positive integer"}}
	}
	return id, nil
}

func writeError(c *fiber.Ctx, err error) error {
	var validationErr errs.ValidationError
	var conflictErr errs.ConflictError
	var notFoundErr errs.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   err.Error(),
			Missing: validationErr.Missing,
			Invalid: validationErr.Invalid,
		})
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
