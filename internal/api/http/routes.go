package httpapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/radar"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// PermissionSetter is the runtime switch for location access.
type PermissionSetter interface {
	SetPermission(granted bool)
}

// SevereAlertFeed exposes the background alert check.
type SevereAlertFeed interface {
	SevereAlerts() []weather.Alert
}

// Deps are the components the API exposes.
type Deps struct {
	Session    *session.Controller
	Radar      *radar.Player
	Searcher   weather.PlaceSearcher
	Permission PermissionSetter
	Prefs      weather.PreferenceStore
	Alerts     SevereAlertFeed
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

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/api/v1")

	registerSessionRoutes(v1, d)
	registerLocationRoutes(v1, d)
	registerRadarRoutes(v1, d)

	v1.Get("/alerts/severe", func(c *fiber.Ctx) error {
		if d.Alerts == nil {
			return c.JSON([]weather.Alert{})
		}
		return c.JSON(d.Alerts.SevereAlerts())
	})
}

func registerSessionRoutes(v1 fiber.Router, d Deps) {
	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/session/current", func(c *fiber.Ctx) error {
		d.Session.LoadForCurrentLocation(c.UserContext())
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/session/coordinates", func(c *fiber.Ctx) error {
		var req coordinatesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := d.Session.LoadForCoordinates(c.UserContext(), req.coordinates(), req.UseLiveLocation); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/session/refresh", func(c *fiber.Ctx) error {
		d.Session.Refresh(c.UserContext())
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/session/page/:index", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "page index must be an integer")
		}
		if err := d.Session.OnPageChanged(c.UserContext(), index); err != nil {
			if errors.Is(err, session.ErrPageOutOfRange) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return err
		}
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/session/location/:id", func(c *fiber.Ctx) error {
		if err := d.Session.LoadForLocation(c.UserContext(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Post("/permission", func(c *fiber.Ctx) error {
		var req permissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if d.Permission != nil {
			d.Permission.SetPermission(*req.Granted)
		}
		if *req.Granted {
			d.Session.OnPermissionGranted(c.UserContext())
		} else {
			d.Session.OnPermissionDenied()
		}
		return c.JSON(sessionResponse(d.Session.State()))
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(d.Session.State().Settings)
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var settings weather.Settings
		if err := c.BodyParser(&settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := d.Session.UpdateSettings(c.UserContext(), settings); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(settings)
	})
}

func registerLocationRoutes(v1 fiber.Router, d Deps) {
	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(d.Session.State().SavedLocations)
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := searchQuery{Query: strings.TrimSpace(c.Query("q")), Count: c.QueryInt("count", 10)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if d.Searcher == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "place search not configured")
		}
		places, err := d.Searcher.SearchPlaces(c.UserContext(), q.Query, q.Count)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "place search failed")
		}
		return c.JSON(places)
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var req addLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		saved, err := d.Session.AddLocation(c.UserContext(), req.place())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		if err := d.Session.RemoveLocation(c.UserContext(), c.Params("id")); err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "saved location not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func registerRadarRoutes(v1 fiber.Router, d Deps) {
	v1.Get("/radar", func(c *fiber.Ctx) error {
		lat, err := parseFloatQuery(c, "lat")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		lon, err := parseFloatQuery(c, "lon")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		center := weather.Coordinates{Latitude: lat, Longitude: lon}
		if err := center.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(radarResponse(d.Radar.State(), radar.ResolveCenter(c.UserContext(), d.Prefs, lat, lon)))
	})

	v1.Post("/radar/reload", func(c *fiber.Ctx) error {
		if err := d.Radar.LoadFrames(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(d.Radar.State())
	})

	v1.Post("/radar/toggle", func(c *fiber.Ctx) error {
		d.Radar.TogglePlayback()
		return c.JSON(d.Radar.State())
	})

	v1.Post("/radar/interaction/start", func(c *fiber.Ctx) error {
		d.Radar.OnMapInteractionStart()
		return c.JSON(d.Radar.State())
	})

	v1.Post("/radar/interaction/end", func(c *fiber.Ctx) error {
		d.Radar.OnMapInteractionEnd()
		return c.JSON(d.Radar.State())
	})

	v1.Post("/radar/seek/:index", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "frame index must be an integer")
		}
		d.Radar.SeekToFrame(index)
		return c.JSON(d.Radar.State())
	})
}

// coordinatesRequest is the body of POST /session/coordinates.
type coordinatesRequest struct {
	Latitude        *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	UseLiveLocation bool     `json:"useLiveLocation"`
}

func (r coordinatesRequest) coordinates() weather.Coordinates {
	return weather.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

type permissionRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

type searchQuery struct {
	Query string `validate:"required,min=2,max=100"`
	Count int    `validate:"gte=1,lte=20"`
}

type addLocationRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Region    string   `json:"region" validate:"max=200"`
	Country   string   `json:"country" validate:"max=200"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r addLocationRequest) place() weather.Place {
	return weather.Place{
		Name:      r.Name,
		Region:    r.Region,
		Country:   r.Country,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}

func sessionResponse(s session.State) fiber.Map {
	return fiber.Map{
		"phase": s.Phase(),
		"state": s,
	}
}

func radarResponse(s radar.PlaybackState, center weather.Coordinates) fiber.Map {
	resp := fiber.Map{
		"state":       s,
		"center":      center,
		"totalFrames": s.TotalFrames(),
	}
	if frame, ok := s.CurrentFrame(); ok {
		resp["currentFrame"] = frame
		resp["isForecast"] = s.Frames.IsForecast(s.CurrentIndex)
	}
	return resp
}

// parseFloatQuery returns 0 for a missing parameter.
func parseFloatQuery(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid " + key + " query parameter")
	}
	return v, nil
}
