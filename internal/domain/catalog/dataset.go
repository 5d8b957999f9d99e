package catalog

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Dataset is a complete catalog snapshot, as stored in seed files.
type Dataset struct {
	Categories  []Category
	Products    []Product
	Collections []Collection
	// Members maps a collection slug to its product IDs in display order.
	Members map[string][]string
	Posts   []BlogPost
}

// DecodeDataset parses a JSON catalog snapshot.
func DecodeDataset(data []byte) (*Dataset, error) {
	ds := &Dataset{Members: make(map[string][]string)}
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCategory(d)
				ds.Categories = append(ds.Categories, c)
				return err
			})
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				ds.Products = append(ds.Products, p)
				return err
			})
		case "collections":
			return d.Arr(func(d *jx.Decoder) error {
				c, members, err := decodeCollection(d)
				ds.Collections = append(ds.Collections, c)
				ds.Members[c.Slug] = members
				return err
			})
		case "posts":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodePost(d)
				ds.Posts = append(ds.Posts, p)
				return err
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog dataset")
	}
	return ds, nil
}

func decodeCategory(d *jx.Decoder) (Category, error) {
	var c Category
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "slug":
			c.Slug, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "icon":
			c.Icon, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "category field %q", key)
	})
	return c, err
}

func decodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "categoryId":
			p.CategoryID, err = d.Str()
		case "images":
			p.Images, err = decodeStrings(d)
		case "stock":
			p.Stock, err = d.Int()
		case "featured":
			p.Featured, err = d.Bool()
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
			p.UpdatedAt = p.CreatedAt
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "product field %q", key)
	})
	return p, err
}

func decodeCollection(d *jx.Decoder) (Collection, []string, error) {
	var (
		c       Collection
		members []string
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "slug":
			c.Slug, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "image":
			c.Image, err = d.Str()
		case "products":
			members, err = decodeStrings(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "collection field %q", key)
	})
	return c, members, err
}

func decodePost(d *jx.Decoder) (BlogPost, error) {
	var p BlogPost
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "slug":
			p.Slug, err = d.Str()
		case "excerpt":
			p.Excerpt, err = d.Str()
		case "content":
			p.Content, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "tags":
			p.Tags, err = decodeStrings(d)
		case "published":
			p.Published, err = d.Bool()
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
			p.UpdatedAt = p.CreatedAt
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "post field %q", key)
	})
	return p, err
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		out = append(out, s)
		return err
	})
	return out, err
}

// decodeDecimal accepts both "12.50" and 12.50.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}
