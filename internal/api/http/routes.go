package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/solar-fits-dashboard/internal/cache"
	"github.com/i474232898/solar-fits-dashboard/internal/common"
	"github.com/i474232898/solar-fits-dashboard/internal/observation"
	"github.com/i474232898/solar-fits-dashboard/internal/render"
	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

// maxWait bounds how long ?wait=true holds a request open.
const maxWait = 30 * time.Second

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pathsegment", func(fl validator.FieldLevel) bool {
		return common.SafePathSegment(fl.Field().String())
	})
	return v
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sessions *session.Manager) {
	v1 := app.Group("/api/v1")

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		s, err := sessions.Create(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"kind":    observation.KindOf(err),
				"id":      s.ID(),
			})
		}

		years, _ := s.Years()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":          s.ID(),
			"years":       years,
			"defaultYear": s.DefaultYear(),
		})
	})

	sess := v1.Group("/sessions/:id", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown session")
		}
		c.Locals("session", s)
		return c.Next()
	})

	sess.Delete("", func(c *fiber.Ctx) error {
		if err := sessions.Delete(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown session")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	sess.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(sessionOf(c).Status())
	})

	sess.Get("/years", func(c *fiber.Ctx) error {
		s := sessionOf(c)
		years, err := s.LoadYears(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{
			"years":       years,
			"defaultYear": s.DefaultYear(),
			"selected":    s.SelectedYear(),
		})
	})

	sess.Put("/year", func(c *fiber.Ctx) error {
		var req selectYearRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		files, err := sessionOf(c).SelectYear(c.UserContext(), req.Year)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(fiber.Map{"year": req.Year, "files": files})
	})

	sess.Get("/files/:year", func(c *fiber.Ctx) error {
		q := yearQuery{Year: utils.CopyString(c.Params("year"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		files, err := sessionOf(c).Files(c.UserContext(), q.Year)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(fiber.Map{"year": q.Year, "files": files})
	})

	obs := sess.Group("/observations/:year/:filename", func(c *fiber.Ctx) error {
		// Keys outlive the request; fiber reuses param buffers.
		q := observationQuery{
			Year:     utils.CopyString(c.Params("year")),
			Filename: utils.CopyString(c.Params("filename")),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		c.Locals("key", observation.NewKey(q.Year, q.Filename))
		return c.Next()
	})

	obs.Get("", func(c *fiber.Ctx) error {
		key := keyOf(c)
		return c.JSON(newObservationResponse(key, sessionOf(c).Observation(key)))
	})

	obs.Post("/expand", func(c *fiber.Ctx) error {
		s, key := sessionOf(c), keyOf(c)
		st := s.Expand(key)
		if c.QueryBool("wait") {
			st = waitFor(c, s, key)
		}
		return c.JSON(newObservationResponse(key, st))
	})

	obs.Delete("/expand", func(c *fiber.Ctx) error {
		key := keyOf(c)
		return c.JSON(newObservationResponse(key, sessionOf(c).Collapse(key)))
	})

	obs.Post("/retry", func(c *fiber.Ctx) error {
		s, key := sessionOf(c), keyOf(c)
		st, err := s.Retry(key)
		if err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if c.QueryBool("wait") {
			st = waitFor(c, s, key)
		}
		return c.JSON(newObservationResponse(key, st))
	})

	obs.Get("/image.png", func(c *fiber.Ctx) error {
		return sendImage(c, func(r observation.Record) string { return r.Image })
	})

	obs.Get("/histogram.png", func(c *fiber.Ctx) error {
		return sendImage(c, func(r observation.Record) string { return r.Histogram })
	})

	sess.Get("/aggregate/:year", func(c *fiber.Ctx) error {
		q := yearQuery{Year: utils.CopyString(c.Params("year"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(sessionOf(c).Aggregate(q.Year))
	})

	sess.Get("/aggregate/:year/chart.png", func(c *fiber.Ctx) error {
		q := yearQuery{Year: utils.CopyString(c.Params("year"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		png, err := render.TrendChart(sessionOf(c).Aggregate(q.Year))
		if err != nil {
			if errors.Is(err, render.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, "no loaded observations for year")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	})
}

func sessionOf(c *fiber.Ctx) *session.Session {
	return c.Locals("session").(*session.Session)
}

func keyOf(c *fiber.Ctx) observation.Key {
	return c.Locals("key").(observation.Key)
}

func waitFor(c *fiber.Ctx, s *session.Session, key observation.Key) cache.State {
	ctx, cancel := context.WithTimeout(c.UserContext(), maxWait)
	defer cancel()

	st, _ := s.Wait(ctx, key)
	return st
}

func sendImage(c *fiber.Ctx, pick func(observation.Record) string) error {
	st := sessionOf(c).Observation(keyOf(c))
	if st.Status != cache.StatusLoaded {
		return fiber.NewError(fiber.StatusNotFound, "observation is "+string(st.Status))
	}

	data, ctype, err := render.DecodeImage(pick(st.Record))
	if err != nil {
		if errors.Is(err, render.ErrNoData) {
			return fiber.NewError(fiber.StatusNotFound, "observation has no such image")
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	c.Set(fiber.HeaderContentType, ctype)
	return c.Send(data)
}

// statusFor maps data-service failures onto HTTP status codes.
func statusFor(err error) int {
	switch observation.KindOf(err) {
	case observation.KindDataUnavailable:
		return fiber.StatusNotFound
	case observation.KindTimeout:
		return fiber.StatusGatewayTimeout
	case observation.KindTransport, observation.KindMalformedData, observation.KindCanceled:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
