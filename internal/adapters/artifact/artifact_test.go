package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/creditscope/internal/adapters/artifact"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/smartystreets/goconvey/convey"
)

const jsonArtifact = `{
  "expected_value": -0.42,
  "features": ["EXT_SOURCE_3", "EXT_SOURCE_2"],
  "rows": {"100002": [0.8, -0.1], "100003": [-0.3, 0.2]}
}`

const yamlArtifact = `expected_value: -0.42
features: [EXT_SOURCE_3, EXT_SOURCE_2]
rows:
  100002: [0.8, -0.1]
  100003: [-0.3, 0.2]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExplanations(t *testing.T) {
	convey.Convey("Given attribution exports", t, func() {
		for name, content := range map[string]string{"shap.json": jsonArtifact, "shap.yaml": yamlArtifact, "shap.YML": yamlArtifact} {
			path := writeFile(t, name, content)

			convey.Convey("Then "+name+" decodes to the same set", func() {
				set, err := artifact.LoadExplanations(path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(set.ExpectedValue, convey.ShouldEqual, -0.42)
				convey.So(set.Features, convey.ShouldResemble, []string{"EXT_SOURCE_3", "EXT_SOURCE_2"})
				convey.So(set.Len(), convey.ShouldEqual, 2)
				convey.So(set.Rows[100002], convey.ShouldResemble, []float64{0.8, -0.1})
			})
		}

		convey.Convey("Then an unknown extension is rejected", func() {
			_, err := artifact.LoadExplanations(writeFile(t, "shap.pkl", "x"))
			convey.So(errors.Is(err, artifact.ErrUnsupportedFormat), convey.ShouldBeTrue)
		})

		convey.Convey("Then a malformed shape is rejected", func() {
			bad := `{"expected_value": 0, "features": ["A", "B"], "rows": {"1": [0.1]}}`
			_, err := artifact.LoadExplanations(writeFile(t, "bad.json", bad))
			convey.So(errors.Is(err, explain.ErrInvalidSet), convey.ShouldBeTrue)
		})

		convey.Convey("Then invalid syntax is an error", func() {
			_, err := artifact.Decode(strings.NewReader("{"), artifact.FormatJSON)
			convey.So(err, convey.ShouldNotBeNil)
			_, err = artifact.Decode(strings.NewReader("rows: [unclosed"), artifact.FormatYAML)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then a missing file is an error", func() {
			_, err := artifact.LoadExplanations(filepath.Join(t.TempDir(), "missing.json"))
			convey.So(errors.Is(err, os.ErrNotExist), convey.ShouldBeTrue)
		})
	})
}
