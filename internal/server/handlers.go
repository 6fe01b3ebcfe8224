package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/convert"
	"github.com/skosovsky/promptsdk/ext/otelconv"
	"github.com/skosovsky/promptsdk/manifest"
)

// MsgUnusable is the 422 message for conversions that yield no parameters.
const MsgUnusable = "prompt cannot be used with this provider"

type convertRequest struct {
	Prompt    json.RawMessage     `json:"prompt" validate:"required"`
	Variables promptsdk.Variables `json:"variables"`
}

type promptInfo struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	Tag            string   `json:"tag,omitempty"`
	ModelProvider  string   `json:"model_provider,omitempty"`
	ModelName      string   `json:"model_name"`
	TemplateFormat string   `json:"template_format,omitempty"`
	Chat           bool     `json:"chat"`
	Variables      []string `json:"variables"`
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "providers": convert.Providers()})
}

func (s *Server) convertRecord(c fiber.Ctx) error {
	provider, err := convert.ParseProvider(c.Params("provider"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req convertRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	prompt, err := manifest.ParseBytes(req.Prompt)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.respond(c, provider, prompt, req.Variables)
}

func (s *Server) describePrompt(c fiber.Ctx) error {
	prompt, err := s.lookup(c)
	if err != nil {
		return err
	}
	info := promptInfo{
		ID:             prompt.ID,
		Name:           c.Params("name"),
		Tag:            prompt.Tag,
		ModelProvider:  string(prompt.ModelProvider),
		ModelName:      prompt.ModelName,
		TemplateFormat: string(prompt.TemplateFormat),
		Variables:      []string{},
	}
	if msgs, ok := prompt.Messages(); ok {
		info.Chat = true
		vars, err := promptsdk.ExtractVariables(prompt.TemplateFormat, msgs)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		if vars != nil {
			info.Variables = vars
		}
	}
	return c.JSON(info)
}

func (s *Server) convertRegistryPrompt(c fiber.Ctx) error {
	provider, err := convert.ParseProvider(c.Params("provider"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	prompt, err := s.lookup(c)
	if err != nil {
		return err
	}
	// Query parameters other than tag bind variables; none means preview without interpolation.
	var vars promptsdk.Variables
	if q := c.Queries(); len(q) > 0 {
		delete(q, "tag")
		if len(q) > 0 {
			vars = make(promptsdk.Variables, len(q))
			for k, v := range q {
				vars[k] = v
			}
		}
	}
	return s.respond(c, provider, prompt, vars)
}

func (s *Server) lookup(c fiber.Ctx) (*promptsdk.PromptVersion, error) {
	if s.registry == nil {
		return nil, fiber.NewError(fiber.StatusNotImplemented, "no prompt registry configured")
	}
	prompt, err := s.registry.GetPrompt(c.Context(), c.Params("name"), c.Query("tag"))
	switch {
	case err == nil:
		return prompt, nil
	case errors.Is(err, promptsdk.ErrInvalidName):
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, promptsdk.ErrPromptNotFound):
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		s.logger.Error("prompt registry lookup failed", "prompt", c.Params("name"), "err", err)
		return nil, fiber.NewError(fiber.StatusBadGateway, "prompt registry unavailable")
	}
}

func (s *Server) respond(c fiber.Ctx, provider promptsdk.ModelProvider, prompt *promptsdk.PromptVersion, vars promptsdk.Variables) error {
	next, err := convert.ForProvider(provider, convert.WithLogger(s.logger))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	traced := otelconv.Wrap(next, otelconv.WithLogger(s.logger), otelconv.WithTracerProvider(s.tracer))
	params := traced.ToParams(c.Context(), prompt, vars)
	if params == nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, MsgUnusable)
	}
	return c.JSON(params)
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error("unhandled request error", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
