package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	items := []LineItem{
		{ID: "l1", ProductID: "p1", ProductName: "Accra Nights Hoodie", Price: d("149.50"), Quantity: 2, Image: "https://img/1.jpg"},
		{ID: "l2", ProductID: "p2", ProductName: "Cap", Price: d("20"), Quantity: 1},
	}

	got, err := DecodeLines(EncodeLines(items))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, items[0].Price.Equal(got[0].Price))
	assert.Equal(t, "https://img/1.jpg", got[0].Image)
	assert.Equal(t, "", got[1].Image)
	assert.Equal(t, 1, got[1].Quantity)
}

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "empty array", input: `[]`, want: 0},
		{name: "unknown fields are skipped", input: `[{"id":"a","productId":"p","price":"1","quantity":1,"color":"red"}]`, want: 1},
		{name: "bad price", input: `[{"id":"a","price":"ten"}]`, wantErr: true},
		{name: "not an array", input: `{"id":"a"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLines([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDecodeLines_DropsInvalid(t *testing.T) {
	items, err := DecodeLines([]byte(`[
		{"id":"a","productId":"p1","price":"10","quantity":1},
		{"id":"b","productId":"","price":"10","quantity":1},
		{"id":"c","productId":"p3","price":"10","quantity":0},
		{"id":"d","productId":"p4","price":"10","quantity":-2}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}
