package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// EncodeLines serializes items into the JSON blob stored by key-value
// backends.
func EncodeLines(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(li.ID)
		e.FieldStart("productId")
		e.Str(li.ProductID)
		e.FieldStart("productName")
		e.Str(li.ProductName)
		e.FieldStart("price")
		e.Str(li.Price.String())
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		if li.Image != "" {
			e.FieldStart("image")
			e.Str(li.Image)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeLines parses a blob produced by EncodeLines.
func DecodeLines(data []byte) ([]LineItem, error) {
	var items []LineItem
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var li LineItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				li.ID, err = d.Str()
			case "productId":
				li.ProductID, err = d.Str()
			case "productName":
				li.ProductName, err = d.Str()
			case "price":
				var s string
				if s, err = d.Str(); err == nil {
					li.Price, err = decimal.NewFromString(s)
				}
			case "quantity":
				li.Quantity, err = d.Int()
			case "image":
				li.Image, err = d.Str()
			default:
				err = d.Skip()
			}
			return errors.Wrapf(err, "field %q", key)
		}); err != nil {
			return err
		}
		items = append(items, li)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart lines")
	}
	return ValidLines(items), nil
}
