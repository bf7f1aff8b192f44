package httpapi

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-records/internal/store"
	"github.com/i474232898/weather-records/internal/weather"
)

// HealthChecker reports the outcome of the latest store probe.
type HealthChecker interface {
	Healthy() bool
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. A nil health
// checker makes /health always report ok.
func RegisterRoutes(app *fiber.App, service *weather.Service, health HealthChecker) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if health != nil && !health.Healthy() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/weather", func(c *fiber.Ctx) error {
		var in *weather.RecordInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		var rec *weather.Record
		if in != nil {
			r, err := in.Record()
			if err != nil {
				slog.Debug("rejected weather record", "error", err)
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			rec = &r
		}

		created, err := service.Create(c.UserContext(), rec)
		if err != nil {
			return storeError(err, "failed to store weather record")
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	app.Get("/weather/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be an integer")
		}

		rec, err := service.FindByID(c.UserContext(), &id)
		if err != nil {
			return storeError(err, "failed to fetch weather record")
		}
		if rec == nil {
			return fiber.NewError(fiber.StatusNotFound, "weather record not found")
		}
		return c.JSON(rec)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		var q searchQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.Search(c.UserContext(), q.Date, q.City, q.Sort)
		if err != nil {
			if errors.Is(err, weather.ErrWrongDateFormat) || errors.Is(err, weather.ErrUnknownSortField) {
				slog.Debug("rejected weather search", "date", q.Date, "city", q.City, "sort", q.Sort, "error", err)
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return storeError(err, "failed to search weather records")
		}
		return c.JSON(records)
	})
}

// searchQuery holds the optional query parameters of the search endpoint.
type searchQuery struct {
	Date string
	City string
	Sort string
}

func (q *searchQuery) bind(c *fiber.Ctx) error {
	q.Date = c.Query("date")
	q.Sort = c.Query("sort")

	// Clients may send the city percent-encoded twice.
	city, err := url.QueryUnescape(c.Query("city"))
	if err != nil {
		return errors.New("invalid city parameter: " + err.Error())
	}
	q.City = city
	return nil
}

func storeError(err error, message string) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "record store unavailable")
	}
	slog.Error(message, "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, message)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
