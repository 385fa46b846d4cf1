package storage

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/jackc/pgx/v5"
)

type ConditionFunc func(*Condition) *Condition

type Condition struct {
	SensorID *int64
	UnitID   *int64

	Category  string
	Protocols []string
	Online    *bool

	Search string

	offset *int
	limit  *int
}

func (c Condition) NamedArgs() pgx.NamedArgs {
	args := pgx.NamedArgs{}

	if c.SensorID != nil {
		args["sensor_id"] = *c.SensorID
	}
	if c.UnitID != nil {
		args["unit_id"] = *c.UnitID
	}
	if c.Category != "" {
		args["category"] = c.Category
	}
	if len(c.Protocols) == 1 {
		args["protocol"] = c.Protocols[0]
	}
	if len(c.Protocols) > 1 {
		args["protocols"] = c.Protocols
	}
	if c.Online != nil {
		args["online"] = *c.Online
	}
	if c.Search != "" {
		args["search"] = "%" + c.Search + "%"
	}

	return args
}

func (c Condition) Where() string {
	where := []string{}

	if c.SensorID != nil {
		where = append(where, "sensor_id = @sensor_id")
	}

	if c.UnitID != nil {
		where = append(where, "unit_id = @unit_id")
	}

	if c.Category != "" {
		where = append(where, "category = @category")
	}

	if len(c.Protocols) == 1 {
		where = append(where, "protocol = @protocol")
	}

	if len(c.Protocols) > 1 {
		where = append(where, "protocol = ANY(@protocols)")
	}

	if c.Online != nil {
		where = append(where, "online = @online")
	}

	if c.Search != "" {
		where = append(where, "(name ILIKE @search OR model ILIKE @search OR config ->> 'friendlyName' ILIKE @search)")
	}

	if len(where) == 0 {
		return ""
	}

	return "WHERE " + strings.Join(where, " AND ")
}

var re = regexp.MustCompile(`[^a-zA-ZåäöÅÄÖ0-9 _,;().-]+|[%]`)

func WithSensorID(sensorID int64) ConditionFunc {
	return func(c *Condition) *Condition {
		c.SensorID = &sensorID
		return c
	}
}

func WithUnitID(unitID int64) ConditionFunc {
	return func(c *Condition) *Condition {
		c.UnitID = &unitID
		return c
	}
}

func WithCategory(category string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Category = category
		return c
	}
}

func WithProtocols(protocols []string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Protocols = protocols
		return c
	}
}

func WithOnline(online bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Online = &online
		return c
	}
}

func WithSearch(s string) ConditionFunc {
	return func(c *Condition) *Condition {
		s = re.ReplaceAllString(s, "")
		c.Search = strings.TrimSpace(s)
		return c
	}
}

func WithOffset(offset int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.offset = &offset
		return c
	}
}

func WithLimit(limit int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.limit = &limit
		return c
	}
}

func ParseConditions(ctx context.Context, params map[string][]string) []ConditionFunc {
	log := logging.GetFromContext(ctx)

	conditions := make([]ConditionFunc, 0)

	for k, v := range params {
		switch strings.ToLower(k) {
		case "sensor_id":
			id, err := strconv.ParseInt(v[0], 10, 64)
			if err == nil {
				conditions = append(conditions, WithSensorID(id))
			}
		case "unit_id":
			id, err := strconv.ParseInt(v[0], 10, 64)
			if err == nil {
				conditions = append(conditions, WithUnitID(id))
			}
		case "category":
			conditions = append(conditions, WithCategory(v[0]))
		case "protocol":
			fallthrough
		case "protocols":
			conditions = append(conditions, WithProtocols(v))
		case "online":
			online, _ := strconv.ParseBool(v[0])
			conditions = append(conditions, WithOnline(online))
		case "search":
			conditions = append(conditions, WithSearch(v[0]))
		case "limit":
			limit, _ := strconv.Atoi(v[0])
			conditions = append(conditions, WithLimit(limit))
		case "offset":
			offset, _ := strconv.Atoi(v[0])
			conditions = append(conditions, WithOffset(offset))
		default:
			log.Debug("unknown query parameter", "param", k, "value", v[0])
		}
	}

	return conditions
}
