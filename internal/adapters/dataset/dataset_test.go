package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/creditscope/internal/adapters/dataset"
	"github.com/okian/creditscope/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCSV = `SK_ID_CURR,EXT_SOURCE_3,DAYS_EMPLOYED,CODE_GENDER,OCCUPATION
100002,0.139,-637,0,Laborers
100003,,-1188,1,
100004,0.729,-225,0,Core staff
`

func TestRead(t *testing.T) {
	Convey("Given a client CSV", t, func() {
		ds, err := dataset.Read(strings.NewReader(sampleCSV))
		So(err, ShouldBeNil)

		Convey("Then ids and columns keep file order", func() {
			So(ds.Len(), ShouldEqual, 3)
			So(ds.IDs(), ShouldResemble, []int64{100002, 100003, 100004})
			So(ds.Columns(), ShouldResemble, []string{"SK_ID_CURR", "EXT_SOURCE_3", "DAYS_EMPLOYED", "CODE_GENDER", "OCCUPATION"})
		})

		Convey("Then cells are typed", func() {
			rec, ok := ds.ByID(100002)
			So(ok, ShouldBeTrue)
			So(rec[model.IDKey], ShouldEqual, int64(100002))
			So(rec["EXT_SOURCE_3"], ShouldEqual, 0.139)
			So(rec["DAYS_EMPLOYED"], ShouldEqual, int64(-637))
			So(rec["OCCUPATION"], ShouldEqual, "Laborers")
		})

		Convey("Then empty cells are nil", func() {
			rec, _ := ds.ByID(100003)
			So(rec["EXT_SOURCE_3"], ShouldBeNil)
			So(rec["OCCUPATION"], ShouldBeNil)
			_, present := rec["EXT_SOURCE_3"]
			So(present, ShouldBeTrue)
		})

		Convey("Then lookups return independent copies", func() {
			rec, _ := ds.ByID(100002)
			rec["EXT_SOURCE_3"] = 1.0
			again, _ := ds.ByID(100002)
			So(again["EXT_SOURCE_3"], ShouldEqual, 0.139)
		})

		Convey("Then unknown ids are reported", func() {
			_, ok := ds.ByID(1)
			So(ok, ShouldBeFalse)
		})

		Convey("Then the summary covers every column", func() {
			summary := ds.Summary()
			So(summary, ShouldHaveLength, 5)

			ext := summary[1]
			So(ext.Name, ShouldEqual, "EXT_SOURCE_3")
			So(ext.Numeric, ShouldBeTrue)
			So(ext.Count, ShouldEqual, 2)
			So(ext.Missing, ShouldEqual, 1)
			So(ext.Min, ShouldEqual, 0.139)
			So(ext.Max, ShouldEqual, 0.729)
			So(ext.Mean, ShouldAlmostEqual, 0.434, 1e-9)

			occ := summary[4]
			So(occ.Numeric, ShouldBeFalse)
			So(occ.Count, ShouldEqual, 2)
			So(occ.Min, ShouldEqual, 0.0)
		})
	})
}

func TestRead_Errors(t *testing.T) {
	Convey("Given malformed inputs", t, func() {
		Convey("Then a missing id column is rejected", func() {
			_, err := dataset.Read(strings.NewReader("A,B\n1,2\n"))
			So(errors.Is(err, dataset.ErrMissingIDColumn), ShouldBeTrue)
		})

		Convey("Then duplicate ids are rejected", func() {
			_, err := dataset.Read(strings.NewReader("SK_ID_CURR,A\n1,2\n1,3\n"))
			So(errors.Is(err, dataset.ErrDuplicateID), ShouldBeTrue)
		})

		Convey("Then a non integer id is rejected", func() {
			_, err := dataset.Read(strings.NewReader("SK_ID_CURR,A\nabc,2\n"))
			So(errors.Is(err, dataset.ErrInvalidID), ShouldBeTrue)
		})

		Convey("Then a header without rows is empty", func() {
			_, err := dataset.Read(strings.NewReader("SK_ID_CURR,A\n"))
			So(errors.Is(err, dataset.ErrEmpty), ShouldBeTrue)

			_, err = dataset.Read(strings.NewReader(""))
			So(errors.Is(err, dataset.ErrEmpty), ShouldBeTrue)
		})

		Convey("Then ragged rows are rejected", func() {
			_, err := dataset.Read(strings.NewReader("SK_ID_CURR,A\n1\n"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a CSV file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "test_df.csv")
		So(os.WriteFile(path, []byte("\ufeff"+sampleCSV), 0o600), ShouldBeNil)

		Convey("Then it loads and strips the byte order mark", func() {
			ds, err := dataset.Load(path)
			So(err, ShouldBeNil)
			So(ds.Columns()[0], ShouldEqual, model.IDKey)
		})

		Convey("Then a missing file is an error", func() {
			_, err := dataset.Load(filepath.Join(t.TempDir(), "nope.csv"))
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}

func TestNilDataset(t *testing.T) {
	Convey("Given no dataset", t, func() {
		var ds *dataset.Dataset

		Convey("Then the accessors are empty", func() {
			_, ok := ds.ByID(100002)
			So(ok, ShouldBeFalse)
			So(ds.Len(), ShouldEqual, 0)
			So(ds.IDs(), ShouldBeEmpty)
			So(ds.Columns(), ShouldBeEmpty)
			So(ds.Summary(), ShouldBeEmpty)
		})
	})
}
