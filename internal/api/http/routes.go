package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-station-ingest/internal/common"
	"github.com/i474232898/weather-station-ingest/internal/viewer"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

var validate = validator.New()

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

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, runner *weather.BatchRunner) {
	v1 := app.Group("/api/v1")

	v1.Get("/daily", func(c *fiber.Ctx) error {
		q, rows, err := loadDaily(c, service)
		if err != nil {
			return err
		}
		rows = q.filter().Apply(rows)

		return c.JSON(fiber.Map{
			"table": q.table,
			"start": q.Start,
			"end":   q.End,
			"count": len(rows),
			"rows":  rows,
		})
	})

	v1.Get("/daily/regions", func(c *fiber.Ctx) error {
		_, rows, err := loadDaily(c, service)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"regions": viewer.Regions(rows)})
	})

	v1.Get("/daily/summary", func(c *fiber.Ctx) error {
		q, rows, err := loadDaily(c, service)
		if err != nil {
			return err
		}
		rows = q.filter().Apply(rows)

		return c.JSON(fiber.Map{
			"table":   q.table,
			"count":   len(rows),
			"summary": viewer.Summarize(rows),
		})
	})

	v1.Get("/daily/scatter", func(c *fiber.Ctx) error {
		var axes scatterQuery
		axes.X = c.Query("x", "tavg")
		axes.Y = c.Query("y", "prcp")
		if err := validate.Struct(axes); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q, rows, err := loadDaily(c, service)
		if err != nil {
			return err
		}

		points, err := viewer.Scatter(q.filter().Apply(rows), axes.X, axes.Y)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"x": axes.X, "y": axes.Y, "points": points})
	})

	v1.Get("/daily/export", func(c *fiber.Ctx) error {
		format := c.Query("format", "csv")
		if format != "csv" && format != "xlsx" {
			return fiber.NewError(fiber.StatusBadRequest, "format must be csv or xlsx")
		}

		q, rows, err := loadDaily(c, service)
		if err != nil {
			return err
		}
		rows = q.filter().Apply(rows)

		var buf bytes.Buffer
		if format == "xlsx" {
			err = viewer.WriteXLSX(&buf, q.table, rows)
		} else {
			err = viewer.WriteCSV(&buf, rows)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export rows")
		}

		c.Attachment(q.fileName(format))
		return c.Send(buf.Bytes())
	})

	v1.Post("/batches", func(c *fiber.Ctx) error {
		req, err := parseBatchQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		st, err := runner.Start(req)
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrBatchRunning):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, weather.ErrInvalidRange):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to start batch")
			}
		}

		c.Location("/api/v1/batches/" + st.ID)
		return c.Status(fiber.StatusAccepted).JSON(st)
	})

	v1.Get("/batches/:id", func(c *fiber.Ctx) error {
		st, err := runner.Status(c.Params("id"))
		if err != nil {
			if errors.Is(err, weather.ErrBatchNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no batch with this id")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read batch status")
		}
		return c.JSON(st)
	})
}

// dailyQuery holds the query parameters shared by the /daily endpoints.
type dailyQuery struct {
	Table   string `validate:"omitempty,oneof=past future past_weather future_weather"`
	Start   string `validate:"omitempty,datetime=2006-01-02"`
	End     string `validate:"omitempty,datetime=2006-01-02"`
	Regions []string
	Name    string `validate:"max=200"`

	table weather.Table
	dates weather.DateRange
}

func (q *dailyQuery) bind(c *fiber.Ctx) error {
	q.Table = c.Query("table", string(weather.KindPast))
	q.Start = c.Query("start")
	q.End = c.Query("end")
	q.Regions = common.SplitList(c.Query("region"))
	q.Name = c.Query("q")

	if err := validate.Struct(q); err != nil {
		return err
	}

	table, err := weather.ParseTable(q.Table)
	if err != nil {
		return err
	}
	q.table = table

	if q.Start != "" {
		q.dates.Start, _ = time.Parse(weather.DateLayout, q.Start)
	}
	if q.End != "" {
		q.dates.End, _ = time.Parse(weather.DateLayout, q.End)
	}
	if !q.dates.Start.IsZero() && !q.dates.End.IsZero() && q.dates.Start.After(q.dates.End) {
		return weather.ErrInvalidRange
	}
	return nil
}

func (q dailyQuery) filter() viewer.Filter {
	return viewer.Filter{Regions: q.Regions, Name: q.Name}
}

func (q dailyQuery) fileName(ext string) string {
	name := string(q.table)
	if q.Start != "" {
		name += "_" + q.Start
	}
	if q.End != "" {
		name += "_" + q.End
	}
	return name + "." + ext
}

func loadDaily(c *fiber.Ctx, service *weather.Service) (dailyQuery, []weather.DailyRow, error) {
	var q dailyQuery
	if err := q.bind(c); err != nil {
		return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rows, err := service.Query(c.UserContext(), q.table, q.dates)
	if err != nil {
		return q, nil, fiber.NewError(fiber.StatusInternalServerError, "failed to load daily rows")
	}
	return q, rows, nil
}

// scatterQuery holds the axes of the scatter endpoint.
type scatterQuery struct {
	X string `validate:"required,nefield=Y"`
	Y string `validate:"required"`
}

// batchQuery holds the query parameters of a batch request.
type batchQuery struct {
	Kind  string `validate:"omitempty,oneof=past future"`
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

func parseBatchQuery(c *fiber.Ctx) (weather.IngestRequest, error) {
	q := batchQuery{
		Kind:  c.Query("kind", string(weather.KindPast)),
		Start: c.Query("start"),
		End:   c.Query("end"),
	}
	if err := validate.Struct(q); err != nil {
		return weather.IngestRequest{}, err
	}

	kind, err := weather.ParseBatchKind(q.Kind)
	if err != nil {
		return weather.IngestRequest{}, err
	}

	req := weather.IngestRequest{Kind: kind}
	if q.Start != "" {
		if req.Start, err = time.Parse(weather.DateLayout, q.Start); err != nil {
			return req, fmt.Errorf("invalid start: %w", err)
		}
	}
	if q.End != "" {
		if req.End, err = time.Parse(weather.DateLayout, q.End); err != nil {
			return req, fmt.Errorf("invalid end: %w", err)
		}
	}
	return req, nil
}
