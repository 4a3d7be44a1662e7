package codefirst

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rlch/edmx/edm"
)

// TagName is the struct tag key read by the extractor.
const TagName = "edm"

// fieldTag is the parsed form of an edm struct tag:
//
//	Title    string `edm:"name=Headline,maxlength=200"`
//	ID       int    `edm:"key"`
//	BlogID   int    `edm:"fk=Blog"`
//	Blog     *Blog  `edm:"inverse=Posts,required"`
//	Price    float64 `edm:"precision=18,scale=2"`
//	Internal string `edm:"-"`
type fieldTag struct {
	skip        bool
	name        string
	key         bool
	required    bool
	nullable    bool
	concurrency bool
	maxLength   string
	precision   *int
	scale       *int
	generated   string

	// fk on a scalar names the navigation it backs; on a navigation it
	// lists the foreign key properties, separated by "|".
	fk      []string
	inverse string
}

func parseTag(f reflect.StructField) (fieldTag, error) {
	var t fieldTag

	raw, ok := f.Tag.Lookup(TagName)
	if !ok {
		return t, nil
	}

	if raw == "-" {
		t.skip = true

		return t, nil
	}

	for _, opt := range strings.Split(raw, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}

		key, value, _ := strings.Cut(opt, "=")

		switch key {
		case "name":
			t.name = value
		case "key":
			t.key = true
		case "required":
			t.required = true
		case "nullable":
			t.nullable = true
		case "concurrency":
			t.concurrency = true
		case "maxlength":
			if !strings.EqualFold(value, "max") {
				if _, err := strconv.Atoi(value); err != nil {
					return t, fmt.Errorf("field %s: maxlength %q: %w", f.Name, value, err)
				}
			} else {
				value = "Max"
			}

			t.maxLength = value
		case "precision", "scale":
			n, err := strconv.Atoi(value)
			if err != nil {
				return t, fmt.Errorf("field %s: %s %q: %w", f.Name, key, value, err)
			}

			if key == "precision" {
				t.precision = &n
			} else {
				t.scale = &n
			}
		case "identity":
			t.generated = edm.StoreGeneratedIdentity
		case "computed":
			t.generated = edm.StoreGeneratedComputed
		case "generated":
			switch strings.ToLower(value) {
			case "none":
				t.generated = edm.StoreGeneratedNone
			case "identity":
				t.generated = edm.StoreGeneratedIdentity
			case "computed":
				t.generated = edm.StoreGeneratedComputed
			default:
				return t, fmt.Errorf("field %s: unknown generated pattern %q", f.Name, value)
			}
		case "fk":
			for _, name := range strings.Split(value, "|") {
				if name = strings.TrimSpace(name); name != "" {
					t.fk = append(t.fk, name)
				}
			}
		case "inverse":
			t.inverse = value
		default:
			return t, fmt.Errorf("field %s: unknown edm tag option %q", f.Name, key)
		}
	}

	return t, nil
}

// propertyName returns the EDM member name of a field.
func (t fieldTag) propertyName(f reflect.StructField) string {
	if t.name != "" {
		return t.name
	}

	return f.Name
}
