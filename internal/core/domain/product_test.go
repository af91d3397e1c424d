package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct(t *testing.T) {
	t.Run("CloneDetachesImages", func(t *testing.T) {
		p := Product{ProductID: "p1", Images: []string{"a.jpg"}}
		c := p.Clone()
		c.Images[0] = "b.jpg"
		assert.Equal(t, "a.jpg", p.Images[0])
	})

	t.Run("DefaultImage", func(t *testing.T) {
		p := Product{ProductID: "p1"}.WithDefaultImage("")
		assert.Equal(t, []string{DefaultImage}, p.Images)

		p = Product{ProductID: "p1", Images: []string{"x.jpg"}}.WithDefaultImage("y.jpg")
		assert.Equal(t, []string{"x.jpg"}, p.Images)
	})
}
