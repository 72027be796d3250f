package braintumor

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestVIA(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := testDataset(t, fs, map[ClassLabel]int{Glioma: 2})
	data, err := AnnotateDataset(d, 0, 0)
	require.NoError(t, err)

	project := ToVIA(data)
	require.Len(t, project.ImageMetadata, 2)
	vf, ok := project.ImageMetadata["glioma/002.png-1"]
	require.True(t, ok)
	require.Equal(t, "glioma/002.png", vf.FilePath)
	require.Equal(t, "100360", vf.Attributes[PatientIDAttribute])
	require.Len(t, vf.Annotations, 1)
	region := vf.Annotations[0]
	require.Equal(t, "glioma", region.Attributes[viaLabelAttribute])
	require.Equal(t, "polygon", region.Shape.Name)
	require.Equal(t, []int32{3, 8, 8, 3}, region.Shape.AllPointsX)
	require.Equal(t, []int32{3, 3, 8, 8}, region.Shape.AllPointsY)

	require.NoError(t, WriteVIA(fs, "/via.json", project))
	b, err := afero.ReadFile(fs, "/via.json")
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Contains(t, decoded, "_via_settings")
	require.Contains(t, decoded, "_via_attributes")

	var metadata map[string]VIAAnnotatedFile
	require.NoError(t, json.Unmarshal(decoded["_via_img_metadata"], &metadata))
	require.Equal(t, project.ImageMetadata, metadata)
}
