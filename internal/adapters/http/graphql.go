package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// buildSchema creates the GraphQL schema over the tracker. Field names
// follow the JSON tags of the domain types, which graphql-go resolves by
// default.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"stopId":   &graphql.Field{Type: graphql.String},
			"stopName": &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
		},
	})

	trainType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Train",
		Fields: graphql.Fields{
			"arrivalTime": &graphql.Field{Type: graphql.String},
			"tripId":      &graphql.Field{Type: graphql.String},
			"routeId":     &graphql.Field{Type: graphql.String},
		},
	})

	arrivalsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StationArrivals",
		Fields: graphql.Fields{
			"stopId":     &graphql.Field{Type: graphql.String},
			"southbound": &graphql.Field{Type: graphql.NewList(trainType)},
			"northbound": &graphql.Field{Type: graphql.NewList(trainType)},
		},
	})

	countdownType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Countdown",
		Fields: graphql.Fields{
			"secondsRemaining": &graphql.Field{Type: graphql.Int},
			"refreshEpoch": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(domain.CountdownState).RefreshEpoch), nil
				},
			},
		},
	})

	stateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "State",
		Fields: graphql.Fields{
			"sessionId":          &graphql.Field{Type: graphql.String},
			"location":           &graphql.Field{Type: coordinateType},
			"usedFallbackDenied": &graphql.Field{Type: graphql.Boolean},
			"usedIpFallback":     &graphql.Field{Type: graphql.Boolean},
			"noTrainsFound":      &graphql.Field{Type: graphql.Boolean},
			"stations":           &graphql.Field{Type: graphql.NewList(stopType)},
			"arrivals":           &graphql.Field{Type: graphql.NewList(arrivalsType)},
			"countdown":          &graphql.Field{Type: countdownType},
			"locationSource": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(domain.Snapshot).LocationSource), nil
				},
			},
			"radius": &graphql.Field{
				Type:        graphql.String,
				Description: `Search radius in miles, or "demo"`,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Snapshot).Radius.String(), nil
				},
			},
			"updatedAt": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Snapshot).UpdatedAt.Format(time.RFC3339), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"state": &graphql.Field{
				Type:        stateType,
				Description: "The current board",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tracker.Snapshot(), nil
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Stations near the current location, in backend order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tracker.Snapshot().Stations, nil
				},
			},
			"arrivals": &graphql.Field{
				Type:        graphql.NewList(arrivalsType),
				Description: "Latest arrivals; null while the first fetch is pending",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					arr := deps.Tracker.Snapshot().Arrivals
					if arr == nil {
						return nil, nil
					}
					return arr, nil
				},
			},
			"countdown": &graphql.Field{
				Type: countdownType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tracker.Countdown().State(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setRadius": &graphql.Field{
				Type:        stateType,
				Description: `Change the search radius: miles or "demo"`,
				Args: graphql.FieldConfigArgument{
					"radius": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, err := domain.ParseRadius(p.Args["radius"].(string))
					if err != nil {
						return nil, err
					}
					if err := deps.Tracker.SetRadius(r); err != nil {
						return nil, err
					}
					return deps.Tracker.Snapshot(), nil
				},
			},
			"setLocation": &graphql.Field{
				Type:        stateType,
				Description: "Override the resolved location",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					loc := domain.Coordinate{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					if !loc.Valid() {
						return nil, errInvalidCoordinate
					}
					if err := deps.Tracker.SetLocation(loc); err != nil {
						return nil, err
					}
					return deps.Tracker.Snapshot(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
