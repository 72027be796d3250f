package braintumor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundingBoxFromLandmarks(t *testing.T) {
	bbox, err := BoundingBoxFromLandmarks([]Landmark{
		{X: 10.7, Y: 20.2},
		{X: 30.1, Y: 5.9},
		{X: 15, Y: 40.99},
	})
	require.NoError(t, err)
	require.Equal(t, BoundingBox{XMin: 10, XMax: 30, YMin: 5, YMax: 40}, bbox)
	require.Equal(t, 20, bbox.Width())
	require.Equal(t, 35, bbox.Height())
	require.Equal(t, 21, bbox.Rect().Dx())
}

func TestBoundingBoxSinglePoint(t *testing.T) {
	bbox, err := BoundingBoxFromLandmarks([]Landmark{{X: 3, Y: 4}})
	require.NoError(t, err)
	require.Equal(t, BoundingBox{XMin: 3, XMax: 3, YMin: 4, YMax: 4}, bbox)
	require.Zero(t, bbox.Width())
	require.Zero(t, bbox.Height())
}

func TestBoundingBoxNoLandmarks(t *testing.T) {
	_, err := BoundingBoxFromLandmarks(nil)
	require.ErrorIs(t, err, ErrNoLandmarks)
}

func TestBoundingBoxContainsLandmarks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 100; iter++ {
		landmarks := make([]Landmark, 1+rng.Intn(30))
		for i := range landmarks {
			landmarks[i] = Landmark{X: rng.Float64() * 512, Y: rng.Float64() * 512}
		}
		bbox, err := BoundingBoxFromLandmarks(landmarks)
		require.NoError(t, err)
		require.LessOrEqual(t, bbox.XMin, bbox.XMax)
		require.LessOrEqual(t, bbox.YMin, bbox.YMax)
		for _, l := range landmarks {
			require.LessOrEqual(t, float64(bbox.XMin), l.X)
			require.Less(t, l.X, float64(bbox.XMax+1))
			require.LessOrEqual(t, float64(bbox.YMin), l.Y)
			require.Less(t, l.Y, float64(bbox.YMax+1))
		}

		// Order does not matter.
		rng.Shuffle(len(landmarks), func(i, j int) { landmarks[i], landmarks[j] = landmarks[j], landmarks[i] })
		shuffled, err := BoundingBoxFromLandmarks(landmarks)
		require.NoError(t, err)
		require.Equal(t, bbox, shuffled)
	}
}

func TestParseClassLabel(t *testing.T) {
	for _, s := range []string{"glioma", "Glioma", "2"} {
		c, err := ParseClassLabel(s)
		require.NoError(t, err)
		require.Equal(t, Glioma, c)
	}
	c, err := ParseClassLabel("pituitary")
	require.NoError(t, err)
	require.Equal(t, Pituitary, c)

	_, err = ParseClassLabel("4")
	require.ErrorIs(t, err, ErrUnknownLabel)
	_, err = ParseClassLabel("astrocytoma")
	require.ErrorIs(t, err, ErrUnknownLabel)

	require.False(t, ClassLabel(0).Valid())
	require.Equal(t, "ClassLabel(7)", ClassLabel(7).String())
	require.Equal(t, "", ClassLabel(7).DirName())
}
