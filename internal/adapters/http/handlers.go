package http

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/usecases"
)

// StationsResponse is the body of GET /v1/stations.
type StationsResponse struct {
	Location       *domain.Coordinate    `json:"location"`
	LocationSource domain.LocationSource `json:"locationSource"`
	Radius         domain.Radius         `json:"radius"`
	Stations       []domain.Stop         `json:"stations"`
}

// ArrivalsResponse is the body of GET /v1/arrivals.
type ArrivalsResponse struct {
	Arrivals      []domain.StationArrivals `json:"arrivals"`
	NoTrainsFound bool                     `json:"noTrainsFound"`
	Countdown     domain.CountdownState    `json:"countdown"`
}

type radiusRequest struct {
	Radius json.RawMessage `json:"radius"`
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// StateHandler returns the full board snapshot.
func StateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Tracker.Snapshot())
	}
}

// StationsHandler returns the stations for the current location and radius.
func StationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Tracker.Snapshot()
		return c.JSON(StationsResponse{
			Location:       snap.Location,
			LocationSource: snap.LocationSource,
			Radius:         snap.Radius,
			Stations:       snap.Stations,
		})
	}
}

// ArrivalsHandler returns the latest arrivals, or 204 while the first fetch
// for the current stations is pending.
func ArrivalsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Tracker.Snapshot()
		if snap.Arrivals == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(ArrivalsResponse{
			Arrivals:      snap.Arrivals,
			NoTrainsFound: snap.NoTrainsFound,
			Countdown:     snap.Countdown,
		})
	}
}

// SetRadiusHandler changes the search radius. The body is
// {"radius": 0.5}, {"radius": "0.5"} or {"radius": "demo"}.
func SetRadiusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req radiusRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		r, err := parseRadiusJSON(req.Radius)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		if err := deps.Tracker.SetRadius(r); err != nil {
			return trackerError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"radius": r})
	}
}

// SetLocationHandler overrides the resolved location.
func SetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req locationRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}
		loc := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !loc.Valid() {
			return errBadRequest(c, errInvalidCoordinate.Error())
		}

		if err := deps.Tracker.SetLocation(loc); err != nil {
			return trackerError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"location": loc})
	}
}

func parseRadiusJSON(raw json.RawMessage) (domain.Radius, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return domain.Radius{}, errors.New("radius is required")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return domain.Radius{}, errors.New("radius must be a number or \"demo\"")
		}
		return domain.ParseRadius(str)
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return domain.Radius{}, errors.New("radius must be a number or \"demo\"")
	}
	return domain.ParseRadius(s)
}

func trackerError(c *fiber.Ctx, err error) error {
	if errors.Is(err, usecases.ErrTrackerClosed) {
		return errConflict(c, "tracker is shutting down")
	}
	return errInternal(c, err.Error())
}
