package storage

import (
	"context"
	"testing"

	"github.com/matryer/is"
)

func TestWhereCombinesConditions(t *testing.T) {
	is := is.New(t)

	c := &Condition{}
	for _, f := range []ConditionFunc{WithUnitID(3), WithOnline(true)} {
		f(c)
	}

	is.Equal(c.Where(), "WHERE unit_id = @unit_id AND online = @online")

	args := c.NamedArgs()
	is.Equal(args["unit_id"], int64(3))
	is.Equal(args["online"], true)
}

func TestWhereIsEmptyWithoutConditions(t *testing.T) {
	is := is.New(t)
	is.Equal((&Condition{}).Where(), "")
}

func TestSearchIsSanitized(t *testing.T) {
	is := is.New(t)

	c := WithSearch("  bme%280' --  ")(&Condition{})

	is.Equal(c.Search, "bme280 --")
	is.Equal(c.NamedArgs()["search"], "%bme280 --%")
}

func TestParseConditions(t *testing.T) {
	is := is.New(t)

	params := map[string][]string{
		"unit_id":  {"7"},
		"protocol": {"zigbee"},
		"online":   {"true"},
		"limit":    {"10"},
		"unknown":  {"ignored"},
	}

	conditions := ParseConditions(context.Background(), params)
	is.Equal(len(conditions), 4)

	c := &Condition{}
	for _, f := range conditions {
		f(c)
	}

	is.Equal(*c.UnitID, int64(7))
	is.Equal(c.Protocols, []string{"zigbee"})
	is.Equal(*c.Online, true)
	is.Equal(*c.limit, 10)
}
