package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/common"
	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *choropleth.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/options", func(c *fiber.Ctx) error {
		opts, err := service.Options()
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(opts)
	})

	v1.Get("/choropleth", func(c *fiber.Ctx) error {
		q, err := parseSliceQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := service.Choropleth(c.UserContext(), q.variable(), q.Day)
		if err != nil {
			return failed(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		var q dashboardQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := service.Dashboard(c.UserContext(), q.Variables, q.Days)
		if err != nil {
			// Selection problems render as a placeholder panel, not a failure.
			if res != nil && (errors.Is(err, choropleth.ErrEmptySelection) || errors.Is(err, choropleth.ErrOutOfRange)) {
				return c.JSON(res)
			}
			return failed(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/heatmap", func(c *fiber.Ctx) error {
		q, err := parseSliceQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := service.Heatmap(q.variable(), q.Day)
		if err != nil {
			return failed(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/regions", func(c *fiber.Ctx) error {
		fc, err := service.Boundaries()
		if err != nil {
			return failed(c, err)
		}
		return c.JSON(fc)
	})

	v1.Get("/locate", func(c *fiber.Ctx) error {
		var q locateQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := service.Locate(c.UserContext(), choropleth.LocateQuery{
			Lat:      q.Lat,
			Lon:      q.Lon,
			Place:    q.Place,
			Variable: q.Variable,
			Day:      q.Day,
		})
		if err != nil {
			return failed(c, err)
		}
		return c.JSON(res)
	})
}

func failed(c *fiber.Ctx, err error) error {
	mapped := serviceError(err)
	var fe *fiber.Error
	if errors.As(mapped, &fe) && fe.Code >= fiber.StatusInternalServerError {
		logrus.WithField("path", c.Path()).Errorf("http: %v", err)
	}
	return mapped
}

// sliceQuery selects one variable on one day.
type sliceQuery struct {
	Variable string `validate:"required"`
	Day      int
}

func (q sliceQuery) variable() forecast.Variable { return forecast.Variable(q.Variable) }

func parseSliceQuery(c *fiber.Ctx) (sliceQuery, error) {
	var q sliceQuery
	q.Variable = c.Query("variable")

	day, err := parseInt(c.Query("day", "0"), "day")
	if err != nil {
		return q, err
	}
	q.Day = day

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// dashboardQuery holds the checklist selection and one or more days.
// Range checks are left to the service, which answers with a placeholder.
type dashboardQuery struct {
	Variables []string
	Days      []int
}

func (d *dashboardQuery) bind(c *fiber.Ctx) error {
	d.Variables = common.SplitList(c.Query("variables"))

	raw := c.Query("days")
	if raw == "" {
		raw = c.Query("day", "0")
	}
	days, err := common.ParseIntList(raw)
	if err != nil {
		return fmt.Errorf("invalid days: %w", err)
	}
	d.Days = days
	return nil
}

// locateQuery holds either coordinates or a place name.
type locateQuery struct {
	Lat      *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon      *float64 `validate:"omitempty,gte=-180,lte=180"`
	Place    string
	Variable string
	Day      int `validate:"gte=0"`
}

func (l *locateQuery) bind(c *fiber.Ctx) error {
	var err error
	if l.Lat, err = parseOptionalFloat(c.Query("lat"), "lat"); err != nil {
		return err
	}
	if l.Lon, err = parseOptionalFloat(c.Query("lon"), "lon"); err != nil {
		return err
	}
	l.Place = c.Query("place")
	if (l.Lat == nil || l.Lon == nil) && l.Place == "" {
		return errors.New("lat and lon, or place, are required")
	}
	l.Variable = c.Query("variable")
	if l.Day, err = parseInt(c.Query("day", "0"), "day"); err != nil {
		return err
	}
	return validate.Struct(l)
}

func parseInt(s, name string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

func parseOptionalFloat(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &f, nil
}
